package xlog

import (
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

// FxXLogger prints the fx lifecycle events, the hooks
// of the registry module included.
type FxXLogger struct {
	logger XLogger
}

func (l *FxXLogger) hook(kind string, fn, caller string, err error, runtime int64) {
	fields := []zap.Field{
		zap.String("function", fn),
		zap.String("caller", caller),
	}
	if runtime >= 0 {
		fields = append(fields, zap.Int64("in", runtime))
	}
	if err != nil {
		l.logger.Error(err, "HOOK "+kind+" failed", fields...)
		return
	}
	l.logger.Debug("HOOK "+kind, fields...)
}

func (l *FxXLogger) types(kind string, types []string, module string, fields ...zap.Field) {
	for _, rtype := range types {
		fs := append([]zap.Field{zap.String("rtype", rtype)}, fields...)
		if module != "" {
			fs = append(fs, zap.String("module", module))
		}
		l.logger.Debug(kind, fs...)
	}
}

func (l *FxXLogger) LogEvent(event fxevent.Event) {
	if l == nil || l.logger == nil {
		return
	}

	switch e := event.(type) {
	case *fxevent.OnStartExecuting:
		l.hook("OnStart executing", e.FunctionName, e.CallerName, nil, -1)
	case *fxevent.OnStartExecuted:
		l.hook("OnStart executed", e.FunctionName, e.CallerName, e.Err, int64(e.Runtime))
	case *fxevent.OnStopExecuting:
		l.hook("OnStop executing", e.FunctionName, e.CallerName, nil, -1)
	case *fxevent.OnStopExecuted:
		l.hook("OnStop executed", e.FunctionName, e.CallerName, e.Err, int64(e.Runtime))
	case *fxevent.Supplied:
		if e.Err != nil {
			l.logger.Error(e.Err, "SUPPLY failed",
				zap.String("type", e.TypeName),
				zap.Strings("stacktrace", e.StackTrace),
			)
			return
		}
		l.types("SUPPLY", []string{e.TypeName}, e.ModuleName)
	case *fxevent.Provided:
		l.types("PROVIDE", e.OutputTypeNames, e.ModuleName,
			zap.Bool("private", e.Private),
			zap.String("constructor", e.ConstructorName),
		)
		if e.Err != nil {
			l.logger.Error(e.Err, "PROVIDE failed", zap.Strings("stacktrace", e.StackTrace))
		}
	case *fxevent.Replaced:
		l.types("REPLACE", e.OutputTypeNames, e.ModuleName)
		if e.Err != nil {
			l.logger.Error(e.Err, "REPLACE failed", zap.Strings("stacktrace", e.StackTrace))
		}
	case *fxevent.Decorated:
		l.types("DECORATE", e.OutputTypeNames, e.ModuleName, zap.String("decorator", e.DecoratorName))
		if e.Err != nil {
			l.logger.Error(e.Err, "DECORATE failed", zap.Strings("stacktrace", e.StackTrace))
		}
	case *fxevent.Invoking:
		l.logger.Debug("INVOKING", zap.String("function", e.FunctionName), zap.String("module", e.ModuleName))
	case *fxevent.Invoked:
		if e.Err != nil {
			l.logger.Error(e.Err, "INVOKE failed",
				zap.String("function", e.FunctionName),
				zap.String("trace", e.Trace),
			)
		}
	case *fxevent.Stopping:
		l.logger.Info("STOPPING", zap.String("signal", e.Signal.String()))
	case *fxevent.Stopped:
		if e.Err != nil {
			l.logger.Error(e.Err, "STOP failed")
		}
	case *fxevent.RollingBack:
		l.logger.Error(e.StartErr, "START failed, rolling back")
	case *fxevent.RolledBack:
		if e.Err != nil {
			l.logger.Error(e.Err, "ROLLBACK failed")
		}
	case *fxevent.Started:
		if e.Err != nil {
			l.logger.Error(e.Err, "START failed")
			return
		}
		l.logger.Debug("RUNNING")
	case *fxevent.LoggerInitialized:
		if e.Err != nil {
			l.logger.Error(e.Err, "LOGGER initialization failed")
			return
		}
		l.logger.Debug("LOGGER initialized", zap.String("constructor", e.ConstructorName))
	}
}

func NewFxXLogger(logger XLogger) *FxXLogger {
	return &FxXLogger{
		logger: newComponentLogger(logger, "fx"),
	}
}
