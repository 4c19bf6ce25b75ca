package ir

// Hints attached to statements by analyzers. Strategies match on these
// instead of looking at display text.
const (
	HintAMRAP    = "strategy.amrap"
	HintEMOM     = "strategy.emom"
	HintForTime  = "strategy.for_time"
	HintTabata   = "strategy.tabata"
	HintCountUp  = "timer.count_up"
	HintRepeated = "behavior.repeating"
	HintRest     = "span.rest"
)
