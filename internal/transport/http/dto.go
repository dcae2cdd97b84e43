package http

import (
	"time"

	"github.com/cwrk-planet/coderjam/internal/domain"
)

type CreatePadResponse struct {
	ID  string `json:"id"`
	Key string `json:"key"`
}

type PadResponse struct {
	ID        string               `json:"id"`
	Language  domain.Language      `json:"language"`
	Code      string               `json:"code"`
	Output    []domain.OutputEntry `json:"output"`
	CreatedAt time.Time            `json:"createdAt"`
	UpdatedAt time.Time            `json:"updatedAt"`
}

type HealthResponse struct {
	Status      string    `json:"status"`
	Timestamp   time.Time `json:"timestamp"`
	Environment string    `json:"environment"`
}

type StatsResponse struct {
	Rooms        int `json:"rooms"`
	Participants int `json:"participants"`
	Connections  int `json:"connections"`
}
