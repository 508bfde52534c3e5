package logging

import "go.uber.org/zap"

// NewNop returns a logger that discards everything. Used by tests.
func NewNop() Logger {
	l := &zapLogger{cfg: &LoggerConfig{Logger: "zap"}}
	l.once.Do(func() {
		l.logger = zap.NewNop().Sugar()
	})
	return l
}
