package logger

import (
	"os"
	"strings"
)

type Env string

const (
	EnvDev   Env = "dev"
	EnvStage Env = "stage"
	EnvProd  Env = "prod"
)

// EnvVar selects the environment when the config leaves logging.env empty.
// APP_ENV is still honoured for deployments that set only the generic name.
const EnvVar = "CODERJAM_ENV"

func DetectEnv() Env {
	raw := os.Getenv(EnvVar)
	if strings.TrimSpace(raw) == "" {
		raw = os.Getenv("APP_ENV")
	}

	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "prod", "production":
		return EnvProd
	case "stage", "staging", "preprod", "pre-production":
		return EnvStage
	default:
		return EnvDev
	}
}
