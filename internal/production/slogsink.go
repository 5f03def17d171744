package production

import (
	"context"
	"log/slog"

	"github.com/comalice/hfsm"
)

// SlogSink emits diagnostics to a slog.Logger. Severities map to slog levels,
// the kind becomes the message and the remaining fields become attributes.
// Empty fields are omitted.
type SlogSink struct {
	logger *slog.Logger
}

var _ hfsm.Sink = (*SlogSink)(nil)

// NewSlogSink creates a sink for logger. A nil logger uses slog.Default().
func NewSlogSink(logger *slog.Logger) *SlogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogSink{logger: logger}
}

func (s *SlogSink) Report(d hfsm.Diagnostic) {
	attrs := make([]slog.Attr, 0, 7)
	attrs = append(attrs, slog.String("machine", d.Machine))
	for _, kv := range [...]struct{ k, v string }{
		{"state", d.State},
		{"from", d.From},
		{"to", d.To},
		{"path", d.Path},
	} {
		if kv.v != "" {
			attrs = append(attrs, slog.String(kv.k, kv.v))
		}
	}
	if d.Err != nil {
		attrs = append(attrs, slog.Any("error", d.Err))
	}
	s.logger.LogAttrs(context.Background(), SlogLevel(d.Severity), d.Kind.String(), attrs...)
}

// SlogLevel maps a diagnostic severity to the nearest slog level.
func SlogLevel(sev hfsm.Severity) slog.Level {
	switch {
	case sev <= hfsm.SeverityDebug+3:
		return slog.LevelDebug
	case sev <= hfsm.SeverityInfo+3:
		return slog.LevelInfo
	case sev <= hfsm.SeverityWarning+3:
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}
