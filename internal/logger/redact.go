package logger

import "log/slog"

const redacted = "[REDACTED]"

// Sensitive wraps a value that must never reach log output, such as user
// intents or key material. It renders as [REDACTED] in every handler.
type Sensitive struct {
	v any
}

// Redact marks v as sensitive.
func Redact(v any) Sensitive {
	return Sensitive{v: v}
}

// LogValue implements slog.LogValuer.
func (Sensitive) LogValue() slog.Value {
	return slog.StringValue(redacted)
}

// String keeps fmt verbs from leaking the wrapped value.
func (Sensitive) String() string {
	return redacted
}

// GoString covers the %#v verb.
func (Sensitive) GoString() string {
	return redacted
}
