package overlay

import "time"

// EngineLogEvent describes one registry or engine operation for logging.
type EngineLogEvent struct {
	Op        string
	OverlayID string
	Version   string
	Matched   int
	Duration  time.Duration
	Err       error
}

// EngineLogger records registry and engine operations.
type EngineLogger interface {
	LogOperation(EngineLogEvent)
}

// EngineLoggerFunc adapts a function to EngineLogger.
type EngineLoggerFunc func(EngineLogEvent)

// LogOperation implements EngineLogger.
func (f EngineLoggerFunc) LogOperation(event EngineLogEvent) {
	if f != nil {
		f(event)
	}
}

type noopEngineLogger struct{}

func (noopEngineLogger) LogOperation(EngineLogEvent) {}

// WithEngineLogger attaches an operation logger to the registry and any
// engine constructed from its config.
func WithEngineLogger(logger EngineLogger) Option {
	return func(cfg *registryConfig) {
		if logger == nil {
			cfg.logger = noopEngineLogger{}
			return
		}
		cfg.logger = logger
	}
}

func (cfg registryConfig) engineLogger() EngineLogger {
	if cfg.logger != nil {
		return cfg.logger
	}
	return noopEngineLogger{}
}
