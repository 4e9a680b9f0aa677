package sched

import (
	"testing"

	"github.com/joeycumines/logiface"
	"github.com/stretchr/testify/require"
)

// logifaceEvent is a minimal logiface.Event implementation that records
// fields as they're added, the same shape the teacher's testEvent uses
// in coverage_extra_test.go/coverage_phase2_test.go, adapted here to
// capture fields into a map instead of a single level field since our
// bridge needs to reconstruct a LogEntry.
type logifaceEvent struct {
	logiface.UnimplementedEvent
	level  logiface.Level
	fields map[string]any
	msg    string
}

func (e *logifaceEvent) Level() logiface.Level { return e.level }

func (e *logifaceEvent) AddField(key string, val any) {
	e.fields[key] = val
}

func (e *logifaceEvent) AddString(key, val string) bool {
	e.fields[key] = val
	return true
}

func (e *logifaceEvent) AddInt(key string, val int) bool {
	e.fields[key] = val
	return true
}

func (e *logifaceEvent) AddMessage(msg string) bool {
	e.msg = msg
	return true
}

type logifaceEventFactory struct{}

func (logifaceEventFactory) NewEvent(level logiface.Level) *logifaceEvent {
	return &logifaceEvent{level: level, fields: make(map[string]any)}
}

// logifaceEventWriter bridges a finished logiface event into this
// package's Logger interface, completing the adapter: sched.Logger ->
// logiface.Writer[*logifaceEvent].
type logifaceEventWriter struct {
	target Logger
}

func (w *logifaceEventWriter) Write(event *logifaceEvent) error {
	w.target.Log(LogEntry{
		Level:   logifaceLevelToSched(event.level),
		Message: event.msg,
		Fields:  event.fields,
	})
	return nil
}

func logifaceLevelToSched(l logiface.Level) LogLevel {
	switch {
	case l <= logiface.LevelError:
		return LevelError
	case l <= logiface.LevelWarning:
		return LevelWarn
	case l <= logiface.LevelInformational:
		return LevelInfo
	default:
		return LevelDebug
	}
}

// TestLogifaceBridgeDeliversSchedulerEvents exercises the scheduler's
// Logger interface through a real logiface.Logger, the same
// typedLogger/genericLogger wiring the teacher's event loop tests use
// for the WithLogger option, except the sink here is this package's own
// Logger interface rather than the loop's.
func TestLogifaceBridgeDeliversSchedulerEvents(t *testing.T) {
	var captured []LogEntry
	sink := loggerFunc(func(e LogEntry) { captured = append(captured, e) })

	typedLogger := logiface.New[*logifaceEvent](
		logiface.WithEventFactory[*logifaceEvent](logifaceEventFactory{}),
		logiface.WithWriter[*logifaceEvent](&logifaceEventWriter{target: sink}),
	)

	typedLogger.Info().Str("component", "scheduler").Int("tid", 7).Log("thread created")

	require.Len(t, captured, 1)
	require.Equal(t, LevelInfo, captured[0].Level)
	require.Equal(t, "thread created", captured[0].Message)
	require.Equal(t, "scheduler", captured[0].Fields["component"])
	require.Equal(t, 7, captured[0].Fields["tid"])
}

// TestSchedulerLogsThroughLogifaceBridge wires a Scheduler's WithLogger
// option to the bridge, then exercises it through thread creation, the
// way the original spec scenario expects logging observable externally
// as structured entries rather than formatted text.
func TestSchedulerLogsThroughLogifaceBridge(t *testing.T) {
	var captured []LogEntry
	sink := loggerFunc(func(e LogEntry) { captured = append(captured, e) })

	typedLogger := logiface.New[*logifaceEvent](
		logiface.WithEventFactory[*logifaceEvent](logifaceEventFactory{}),
		logiface.WithWriter[*logifaceEvent](&logifaceEventWriter{target: sink}),
	)
	bridge := &schedLoggerAdapter{logger: typedLogger}

	s, _, err := New(WithLogger(bridge))
	require.NoError(t, err)
	require.NoError(t, s.Start())

	_, err = s.Create("worker", PriorityDefault, func(any) {}, nil)
	require.NoError(t, err)

	found := false
	for _, e := range captured {
		if e.Message == "thread created" {
			found = true
		}
	}
	require.True(t, found, "expected a thread-created entry to reach the logiface sink")
}

// schedLoggerAdapter adapts a *logiface.Logger[*logifaceEvent] to this
// package's Logger interface, the reverse direction of
// logifaceEventWriter: this is what a caller would actually install via
// WithLogger if they wanted logiface to be the logging backend instead
// of merely observing it in a test.
type schedLoggerAdapter struct {
	logger *logiface.Logger[*logifaceEvent]
}

func (a *schedLoggerAdapter) Log(entry LogEntry) {
	b := a.logger.Build(schedLevelToLogiface(entry.Level))
	if b == nil {
		return
	}
	for k, v := range entry.Fields {
		switch val := v.(type) {
		case string:
			b = b.Str(k, val)
		case int:
			b = b.Int(k, val)
		default:
		}
	}
	b.Log(entry.Message)
}

func schedLevelToLogiface(l LogLevel) logiface.Level {
	switch l {
	case LevelDebug:
		return logiface.LevelDebug
	case LevelInfo:
		return logiface.LevelInformational
	case LevelWarn:
		return logiface.LevelWarning
	case LevelError:
		return logiface.LevelError
	default:
		return logiface.LevelInformational
	}
}
