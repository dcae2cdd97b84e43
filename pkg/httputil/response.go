package httputil

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/cwrk-planet/coderjam/pkg/errs"
)

type envelope map[string]any

func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("write json response failed", slog.Any("err", err))
	}
}

// Error writes {"error": msg} with the status derived from err. Messages of
// non client-visible errors are replaced by a generic one.
func Error(ctx context.Context, w http.ResponseWriter, err error) {
	status := errs.ToHTTP(err)
	if status >= http.StatusInternalServerError {
		reqID, _ := FromContext(ctx)
		slog.Error("request failed", "req_id", reqID, "err", err)
	}
	JSON(w, status, envelope{"error": errs.ClientMessage(err)})
}
