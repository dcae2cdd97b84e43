package logger

import (
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
)

// ensureInstanceID tells pad servers apart when several run behind the
// sticky router: host name plus a short random suffix, or the service name
// when the host name is unavailable.
func ensureInstanceID(v, service string) string {
	if v != "" {
		return v
	}

	hn, err := os.Hostname()
	if err != nil || hn == "" {
		hn = service
	}
	return hn + "-" + uuid.New().String()[:8]
}

// processAttrs are attached to every record.
func processAttrs(cfg Config) []slog.Attr {
	return []slog.Attr{
		slog.String("service", cfg.Service),
		slog.String("env", string(cfg.Env)),
		slog.String("version", cfg.Version),
		slog.String("instance_id", cfg.InstanceID),
		slog.Time("started_at", time.Now()),
	}
}
