package middleware

import (
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"backend/internal/logger"
	"backend/internal/store"
	"backend/internal/tenancy"
)

// StoreHeader carries an explicit store code, taking priority over the host.
const StoreHeader = "X-Store"

// StoreContext resolves the current store from the request and scopes the
// request context to it. Requests that match no store pass through
// unscoped; downstream handlers decide whether that is acceptable.
func StoreContext(svc *store.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		var s *store.Store
		var err error
		if code := strings.TrimSpace(c.GetHeader(StoreHeader)); code != "" {
			s, err = svc.FindByCode(ctx, code)
		} else {
			s, err = svc.FindByHost(ctx, requestHost(c.Request))
		}

		if err != nil {
			if !errors.Is(err, store.ErrNotFound) {
				logger.WithContext(ctx).Error("store lookup failed", zap.Error(err))
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "store lookup failed"})
				return
			}
			c.Next()
			return
		}

		ctx = tenancy.WithStore(ctx, s.ID)
		c.Set("store", s)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// RequireStore rejects requests that reach it without a resolved store.
func RequireStore() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := tenancy.CurrentStore(c.Request.Context()); !ok {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "store not found"})
			return
		}
		c.Next()
	}
}

// CurrentStore returns the store resolved by StoreContext, nil when none.
func CurrentStore(c *gin.Context) *store.Store {
	v, ok := c.Get("store")
	if !ok {
		return nil
	}
	s, _ := v.(*store.Store)
	return s
}

func requestHost(r *http.Request) string {
	host := r.Host
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	return host
}
