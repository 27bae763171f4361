package xlog

import (
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	antsv2 "github.com/panjf2000/ants/v2"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap/zapcore"
)

func TestAntsXLogger_ParentLogLevelChanged(t *testing.T) {
	var logger *AntsXLogger
	logger.Printf("nil logger %d", 123)

	parentLogger, w := testMemLogger(t)
	logger = NewAntsXLogger(parentLogger)
	parentLogger.IncreaseLogLevel(zapcore.FatalLevel)
	logger.Printf("unprintable %d", 1)
	parentLogger.IncreaseLogLevel(zapcore.DebugLevel)
	logger.Printf("printable %d", 2)
	require.NoError(t, parentLogger.Sync())

	lines := w.lines(t)
	require.Len(t, lines, 1)
	require.Equal(t, "ants", lines[0]["component"])
	require.Equal(t, "printable 2", lines[0]["msg"])
	require.Equal(t, "ERROR", lines[0]["lvl"])
}

func TestAntsXLogger_AntsPool(t *testing.T) {
	parentLogger, w := testMemLogger(t)
	logger := NewAntsXLogger(parentLogger)

	p, err := antsv2.NewPool(10, antsv2.WithLogger(logger))
	require.NoError(t, err)

	var wg sync.WaitGroup
	wg.Add(2)
	require.NoError(t, p.Submit(func() {
		defer wg.Done()
		parentLogger.Logf(LogLevelDebug.zapLevel(), "test %d", 123)
	}))
	require.NoError(t, p.Submit(func() {
		defer wg.Done()
		panic("xlogger panic in ants pool")
	}))
	wg.Wait()
	// The worker panic is logged after the task returned.
	require.Eventually(t, func() bool {
		return w.contains(`"component":"ants"`)
	}, time.Second, 10*time.Millisecond)
	require.NoError(t, p.ReleaseTimeout(time.Second))
	require.NoError(t, parentLogger.Sync())
	require.True(t, w.contains(`"msg":"test 123"`))
}

func TestFxXLogger_AllEvents(t *testing.T) {
	var nilLogger *FxXLogger
	nilLogger.LogEvent(&fxevent.Started{})

	parentLogger, w := testMemLogger(t)
	logger := NewFxXLogger(parentLogger)
	fxErr := errors.New("fx error")
	events := []fxevent.Event{
		&fxevent.OnStartExecuting{FunctionName: "start", CallerName: "caller"},
		&fxevent.OnStartExecuted{FunctionName: "start", CallerName: "caller", Runtime: 11},
		&fxevent.OnStartExecuted{FunctionName: "start", CallerName: "caller", Err: fxErr},
		&fxevent.OnStopExecuting{FunctionName: "stop", CallerName: "caller"},
		&fxevent.OnStopExecuted{FunctionName: "stop", CallerName: "caller", Runtime: 12},
		&fxevent.OnStopExecuted{FunctionName: "stop", CallerName: "caller", Err: fxErr},
		&fxevent.Supplied{TypeName: "type", Err: fxErr, StackTrace: []string{"stack"}},
		&fxevent.Supplied{TypeName: "type", ModuleName: "module"},
		&fxevent.Provided{ConstructorName: "ctor", OutputTypeNames: []string{"t1", "t2"}, ModuleName: "module"},
		&fxevent.Provided{ConstructorName: "ctor", Err: fxErr},
		&fxevent.Replaced{OutputTypeNames: []string{"t1"}},
		&fxevent.Replaced{Err: fxErr},
		&fxevent.Decorated{DecoratorName: "decorator", OutputTypeNames: []string{"t1"}},
		&fxevent.Decorated{Err: fxErr},
		&fxevent.Invoking{FunctionName: "invoke"},
		&fxevent.Invoked{FunctionName: "invoke"},
		&fxevent.Invoked{FunctionName: "invoke", Err: fxErr, Trace: "trace"},
		&fxevent.Stopping{Signal: os.Interrupt},
		&fxevent.Stopped{},
		&fxevent.Stopped{Err: fxErr},
		&fxevent.RollingBack{StartErr: fxErr},
		&fxevent.RolledBack{},
		&fxevent.RolledBack{Err: fxErr},
		&fxevent.Started{},
		&fxevent.Started{Err: fxErr},
		&fxevent.LoggerInitialized{ConstructorName: "ctor"},
		&fxevent.LoggerInitialized{Err: fxErr},
	}
	for _, e := range events {
		logger.LogEvent(e)
	}
	require.NoError(t, parentLogger.Sync())

	lines := w.lines(t)
	errCount := 0
	for _, line := range lines {
		require.Equal(t, "fx", line["component"])
		if line["lvl"] == "ERROR" {
			require.Equal(t, "fx error", line["error"])
			errCount++
		}
	}
	require.Equal(t, 12, errCount)
}
