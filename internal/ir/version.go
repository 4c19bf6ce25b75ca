package ir

// Version constants stamped on stored history records.
const (
	// IRVersion is the statement/record schema version.
	IRVersion = "1"

	// EngineVersion is the wodrun engine version.
	EngineVersion = "0.1.0"
)
