package runtime

// Event names understood by the runtime and the built-in behaviors.
const (
	// Control vocabulary accepted from presentation layers.
	EventTimerPause  = "timer:pause"
	EventTimerStart  = "timer:start"
	EventBlockNext   = "block:next"
	EventWorkoutStop = "workout:stop"

	// Emitted by the runtime.
	EventTick            = "timer:tick"
	EventRuntimeError    = "runtime:error"
	EventWorkoutComplete = "workout:complete"
	EventWorkoutStopped  = "workout:stopped"
)

// SystemOwner owns handlers the runtime registers for itself.
const SystemOwner = "runtime"
