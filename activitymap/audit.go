package activitymap

import (
	"context"
	"io"

	"github.com/charmbracelet/log"

	auth "github.com/axioquan/go-auth"
)

// NewAuditLogger returns the logger used for the audit trail. The JSON
// formatter is meant for production log shipping.
func NewAuditLogger(w io.Writer, json bool) *log.Logger {
	opts := log.Options{
		Prefix:          "AUDIT",
		Level:           log.InfoLevel,
		ReportTimestamp: true,
	}
	if json {
		opts.Formatter = log.JSONFormatter
	}
	return log.NewWithOptions(w, opts)
}

// AuditSink writes one structured line per auth event. Failures are
// logged at warn level, everything else at info.
func AuditSink(logger *log.Logger) auth.ActivitySink {
	return Sink(func(_ context.Context, e Entry) error {
		if logger == nil {
			return nil
		}
		if e.Outcome == OutcomeFailure {
			logger.Warn("auth "+e.Verb, e.KeyVals()...)
			return nil
		}
		logger.Info("auth "+e.Verb, e.KeyVals()...)
		return nil
	})
}
