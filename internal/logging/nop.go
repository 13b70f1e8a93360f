package logging

// NoOpLogger discards all log output. Used in tests.
type NoOpLogger struct{}

// NewNop returns a logger that discards everything.
func NewNop() Logger {
	return &NoOpLogger{}
}

func (n *NoOpLogger) Debug(msg string, fields ...Field) {}
func (n *NoOpLogger) Info(msg string, fields ...Field)  {}
func (n *NoOpLogger) Warn(msg string, fields ...Field)  {}
func (n *NoOpLogger) Error(msg string, fields ...Field) {}
func (n *NoOpLogger) Fatal(msg string, fields ...Field) {}

func (n *NoOpLogger) With(fields ...Field) Logger { return n }
func (n *NoOpLogger) Sync() error                 { return nil }
