package logger

import "log/slog"

const DefaultService = "coderjam"

var def *slog.Logger

// Init builds the process logger for cfg and installs it as slog's default.
// Dev gets readable text on stdout; stage and prod get sampled JSON through
// zap unless cfg.Backend says otherwise.
func Init(cfg Config) {
	if cfg.Env == "" {
		cfg.Env = DetectEnv()
	}
	if cfg.Service == "" {
		cfg.Service = DefaultService
	}
	cfg.InstanceID = ensureInstanceID(cfg.InstanceID, cfg.Service)

	if cfg.Backend == "" {
		if cfg.Env == EnvDev {
			cfg.Backend = BackendStd
		} else {
			cfg.Backend = BackendZap
		}
	}

	var h slog.Handler
	switch cfg.Backend {
	case BackendZap:
		h = newZapHandler(cfg)
	default:
		h = newStdHandler(cfg)
	}

	base := slog.New(h.WithAttrs(processAttrs(cfg)))
	slog.SetDefault(base)
	def = base
}

// L returns the process logger, initialising the environment default when
// Init was never called (tools and tests).
func L() *slog.Logger {
	if def != nil {
		return def
	}

	Init(Config{})
	return def
}
