package port

// Fields is the set of structured attributes attached to a log record.
type Fields map[string]interface{}

// LoggerPort is the logging contract used by use cases and adapters.
type LoggerPort interface {
	Info(msg string, fields Fields)

	Warn(msg string, fields Fields)

	Error(msg string, err error, fields Fields)

	Debug(msg string, fields Fields)

	// WithFields returns a logger that carries the given fields on every record.
	WithFields(fields Fields) LoggerPort
}
