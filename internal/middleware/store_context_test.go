package middleware_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"backend/internal/domain"
	"backend/internal/middleware"
	"backend/internal/store"
	"backend/internal/tenancy"
)

func setupRouter(t *testing.T) (*gin.Engine, *store.Service) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:mw_%s_%d?mode=memory&cache=shared", t.Name(), time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	registry := tenancy.NewRegistry()
	require.NoError(t, domain.Register(registry))
	require.NoError(t, domain.Migrate(db, registry))
	require.NoError(t, db.Use(tenancy.New(registry)))

	svc := store.NewService(db, registry, zap.NewNop())

	r := gin.New()
	r.Use(middleware.StoreContext(svc))
	r.GET("/store", func(c *gin.Context) {
		id, ok := tenancy.CurrentStore(c.Request.Context())
		if !ok {
			c.JSON(http.StatusOK, gin.H{"store": nil})
			return
		}
		c.JSON(http.StatusOK, gin.H{"store": id})
	})
	guarded := r.Group("/", middleware.RequireStore())
	guarded.GET("/guarded", func(c *gin.Context) {
		s := middleware.CurrentStore(c)
		c.JSON(http.StatusOK, gin.H{"code": s.Code})
	})
	return r, svc
}

func seedStore(t *testing.T, svc *store.Service, code, url string) *store.Store {
	t.Helper()
	s := &store.Store{Code: code, Name: code, URL: url}
	require.NoError(t, svc.Create(context.Background(), s))
	return s
}

func TestStoreResolvedFromHeader(t *testing.T) {
	r, svc := setupRouter(t)
	s := seedStore(t, svc, "north", "north.example.com")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/store", nil)
	req.Header.Set(middleware.StoreHeader, "north")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), s.ID)
}

func TestStoreResolvedFromHostURL(t *testing.T) {
	r, svc := setupRouter(t)
	s := seedStore(t, svc, "north", "north.example.com")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/store", nil)
	req.Host = "north.example.com:8080"
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), s.ID)
}

func TestStoreResolvedFromSubdomain(t *testing.T) {
	r, svc := setupRouter(t)
	s := seedStore(t, svc, "north", "")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/store", nil)
	req.Host = "north.shops.example.com"
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), s.ID)
}

func TestHeaderBeatsHost(t *testing.T) {
	r, svc := setupRouter(t)
	seedStore(t, svc, "north", "north.example.com")
	south := seedStore(t, svc, "south", "south.example.com")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/store", nil)
	req.Host = "north.example.com"
	req.Header.Set(middleware.StoreHeader, "south")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), south.ID)
}

func TestUnknownStorePassesThroughUnscoped(t *testing.T) {
	r, _ := setupRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/store", nil)
	req.Host = "nowhere.example.com"
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "null")
}

func TestRequireStoreRejectsUnresolved(t *testing.T) {
	r, _ := setupRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/guarded", nil)
	req.Host = "nowhere.example.com"
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusNotFound, w.Code)
	require.Contains(t, w.Body.String(), "store not found")
}

func TestRequireStoreAdmitsResolved(t *testing.T) {
	r, svc := setupRouter(t)
	seedStore(t, svc, "north", "north.example.com")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/guarded", nil)
	req.Header.Set(middleware.StoreHeader, "north")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "north")
}
