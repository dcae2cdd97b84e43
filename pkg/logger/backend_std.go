package logger

import (
	"log/slog"
	"os"
	"path/filepath"
)

// newStdHandler is the dev backend: text lines, source trimmed to file:line.
func newStdHandler(cfg Config) slog.Handler {
	return slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level:     cfg.level(),
		AddSource: cfg.AddSource,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key != slog.SourceKey {
				return a
			}
			if src, ok := a.Value.Any().(*slog.Source); ok {
				src.File = filepath.Base(src.File)
				src.Function = ""
			}
			return a
		},
	})
}
