package telemetry

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/roach88/wodrun/internal/runtime"
)

// Error label values for turns that did not end cleanly.
const (
	errorOther        = "other"
	errorHalted       = "halted"
	errorTurnConflict = "turn_in_progress"
)

// Collector counts turns, actions and events.
type Collector struct {
	turns        prometheus.Counter
	actions      *prometheus.CounterVec
	events       *prometheus.CounterVec
	unhandled    prometheus.Counter
	turnErrors   *prometheus.CounterVec
	iterations   prometheus.Histogram
	actionDepth  prometheus.Histogram
	lastTurnTime prometheus.Gauge
}

var _ runtime.Observer = (*Collector)(nil)

// NewCollector creates the workout metrics and registers them on reg.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	c := &Collector{
		turns: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "wodrun_turns_total",
			Help: "Total number of turns submitted to the runtime.",
		}),
		actions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wodrun_actions_total",
			Help: "Total number of actions executed, by action type.",
		}, []string{"type"}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wodrun_events_total",
			Help: "Total number of events dispatched, by event name.",
		}, []string{"event"}),
		unhandled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "wodrun_unhandled_events_total",
			Help: "Events dispatched with no registered handler.",
		}),
		turnErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wodrun_turn_errors_total",
			Help: "Turns that ended with an error, by error code.",
		}, []string{"code"}),
		iterations: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "wodrun_turn_iterations",
			Help:    "Actions executed per turn.",
			Buckets: prometheus.LinearBuckets(1, 1, runtime.DefaultMaxIterations),
		}),
		actionDepth: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "wodrun_action_depth",
			Help:    "Nesting depth at which actions execute.",
			Buckets: prometheus.LinearBuckets(0, 1, 8),
		}),
		lastTurnTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "wodrun_last_turn_timestamp_seconds",
			Help: "Frozen clock of the most recent turn, as a Unix timestamp.",
		}),
	}

	for _, m := range []prometheus.Collector{
		c.turns, c.actions, c.events, c.unhandled,
		c.turnErrors, c.iterations, c.actionDepth, c.lastTurnTime,
	} {
		if err := reg.Register(m); err != nil {
			return nil, fmt.Errorf("register metrics: %w", err)
		}
	}

	// Pre-initialize error codes so they appear with value 0.
	for _, code := range []string{
		string(runtime.ErrCodeRecursionLimit),
		string(runtime.ErrCodeCompileFailed),
		string(runtime.ErrCodeLeak),
	} {
		c.turnErrors.WithLabelValues(code)
	}
	return c, nil
}

func (c *Collector) TurnStarted(turn int, now time.Time) {
	c.turns.Inc()
	c.lastTurnTime.Set(float64(now.UnixNano()) / float64(time.Second))
}

func (c *Collector) ActionExecuted(rec runtime.ActionExecution) {
	c.actions.WithLabelValues(rec.Type).Inc()
	c.actionDepth.Observe(float64(rec.Depth))
}

func (c *Collector) EventDispatched(rec runtime.EventDispatch) {
	c.events.WithLabelValues(rec.Name).Inc()
	if rec.Handlers == 0 {
		c.unhandled.Inc()
	}
}

func (c *Collector) TurnEnded(turn int, iterations int, err error) {
	c.iterations.Observe(float64(iterations))
	if err != nil {
		c.turnErrors.WithLabelValues(ErrorCode(err)).Inc()
	}
}

// ErrorCode maps a turn error to its metric label.
func ErrorCode(err error) string {
	var re *runtime.RuntimeError
	switch {
	case runtime.IsRecursionLimit(err):
		return string(runtime.ErrCodeRecursionLimit)
	case errors.As(err, &re):
		return string(re.Code)
	case errors.Is(err, runtime.ErrHalted):
		return errorHalted
	case errors.Is(err, runtime.ErrTurnInProgress):
		return errorTurnConflict
	}
	return errorOther
}

// Summary is a point-in-time read of the collector.
type Summary struct {
	Turns      int
	Actions    map[string]int
	Events     map[string]int
	Unhandled  int
	Errors     map[string]int
	Iterations int // sum over all turns
}

// Snapshot reads the current metric values.
func (c *Collector) Snapshot() (Summary, error) {
	s := Summary{
		Actions: map[string]int{},
		Events:  map[string]int{},
		Errors:  map[string]int{},
	}

	var err error
	if s.Turns, err = counterValue(c.turns); err != nil {
		return s, err
	}
	if s.Unhandled, err = counterValue(c.unhandled); err != nil {
		return s, err
	}
	if err := vecValues(c.actions, s.Actions); err != nil {
		return s, err
	}
	if err := vecValues(c.events, s.Events); err != nil {
		return s, err
	}
	if err := vecValues(c.turnErrors, s.Errors); err != nil {
		return s, err
	}

	var m dto.Metric
	if err := c.iterations.Write(&m); err != nil {
		return s, fmt.Errorf("read iterations: %w", err)
	}
	s.Iterations = int(m.GetHistogram().GetSampleSum())
	return s, nil
}

// Lines renders the summary as sorted "name value" lines.
func (s Summary) Lines() []string {
	lines := []string{
		fmt.Sprintf("turns %d", s.Turns),
		fmt.Sprintf("iterations %d", s.Iterations),
		fmt.Sprintf("unhandled_events %d", s.Unhandled),
	}
	lines = append(lines, labelled("action", s.Actions)...)
	lines = append(lines, labelled("event", s.Events)...)
	for _, l := range labelled("error", s.Errors) {
		if !strings.HasSuffix(l, " 0") {
			lines = append(lines, l)
		}
	}
	return lines
}

func labelled(prefix string, values map[string]int) []string {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = fmt.Sprintf("%s{%s} %d", prefix, k, values[k])
	}
	return out
}

func counterValue(c prometheus.Counter) (int, error) {
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		return 0, fmt.Errorf("read counter: %w", err)
	}
	return int(m.GetCounter().GetValue()), nil
}

// vecValues reads every child of a single-label counter vec into out.
func vecValues(vec *prometheus.CounterVec, out map[string]int) error {
	ch := make(chan prometheus.Metric)
	go func() {
		vec.Collect(ch)
		close(ch)
	}()

	var firstErr error
	for metric := range ch {
		var m dto.Metric
		if err := metric.Write(&m); err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("read counter vec: %w", err)
			}
			continue
		}
		labels := m.GetLabel()
		if len(labels) == 0 {
			continue
		}
		out[labels[0].GetValue()] = int(m.GetCounter().GetValue())
	}
	return firstErr
}
