package httpmw

import (
	"context"
	"net/http"
	"strings"

	"github.com/cwrk-planet/coderjam/internal/domain"
	"github.com/cwrk-planet/coderjam/pkg/httputil"
)

type ctxKey string

const (
	HeaderPadKey        = "X-Pad-Key"
	ctxKeyPadKey ctxKey = "pad_key"
)

// PadKey requires the X-Pad-Key header and stores it in the request
// context. The key is checked against the pad by the handler.
func PadKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := strings.TrimSpace(r.Header.Get(HeaderPadKey))
		if key == "" {
			httputil.Error(r.Context(), w, domain.ErrBadKey)
			return
		}

		ctx := context.WithValue(r.Context(), ctxKeyPadKey, key)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func PadKeyFromCtx(ctx context.Context) string {
	v, _ := ctx.Value(ctxKeyPadKey).(string)
	return v
}
