package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/ignite/salon-crm/internal/pkg/httputil"
)

// ShopContextKey is the context key for the shop a request is scoped to.
type ShopContextKey struct{}

// ShopIDFromContext returns the shop id set by RequireShop.
func ShopIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(ShopContextKey{}).(int64)
	return id, ok
}

// extractShopID reads the shop from the X-Shop-ID header, falling back to
// the shop_id query parameter.
func extractShopID(r *http.Request) (int64, bool) {
	raw := strings.TrimSpace(r.Header.Get("X-Shop-ID"))
	if raw == "" {
		raw = strings.TrimSpace(r.URL.Query().Get("shop_id"))
	}
	if raw == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// RequireShop rejects requests that do not name a shop.
func RequireShop(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		shopID, ok := extractShopID(r)
		if !ok {
			httputil.BadRequest(w, "X-Shop-ID header with a positive shop id is required")
			return
		}
		ctx := context.WithValue(r.Context(), ShopContextKey{}, shopID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
