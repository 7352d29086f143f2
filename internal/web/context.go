package web

import (
	"context"
	"net/http"

	"github.com/JonMunkholm/csvclean/internal/core"
	"github.com/JonMunkholm/csvclean/internal/web/middleware"
)

// withRequestMeta records who submitted a run. RemoteAddr has already been
// resolved by TrustedRealIP.
func withRequestMeta(ctx context.Context, r *http.Request) context.Context {
	return core.ContextWithRequestMeta(ctx, core.RequestMeta{
		IP:        middleware.ClientIP(r),
		UserAgent: r.UserAgent(),
	})
}
