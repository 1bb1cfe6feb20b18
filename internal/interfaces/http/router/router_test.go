package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(engine *gin.Engine, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w
}

func TestNewRouter(t *testing.T) {
	r := NewRouter(gin.New())
	assert.Equal(t, "v1", r.apiVersion)
	assert.Empty(t, r.registrars)

	r = NewRouter(gin.New(), WithAPIVersion("v2"))
	assert.Equal(t, "v2", r.apiVersion)
}

func TestRouterSetup(t *testing.T) {
	engine := gin.New()

	orders := NewDomainGroup("purchase-orders", "/purchase-orders")
	orders.GET("/:id", func(c *gin.Context) { c.String(http.StatusOK, c.Param("id")) })
	inventory := NewDomainGroup("inventory", "/inventory")
	inventory.GET("/:product_id", func(c *gin.Context) { c.String(http.StatusOK, "stock") })

	api := NewRouter(engine, WithAPIVersion("v2")).Register(orders, inventory).Setup()
	assert.Equal(t, "/api/v2", api.BasePath())

	w := serve(engine, http.MethodGet, "/api/v2/purchase-orders/po-1")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "po-1", w.Body.String())
	assert.Equal(t, http.StatusOK, serve(engine, http.MethodGet, "/api/v2/inventory/p1").Code)
	assert.Equal(t, http.StatusNotFound, serve(engine, http.MethodGet, "/api/v1/inventory/p1").Code)
}

func TestDomainGroup(t *testing.T) {
	t.Run("name and prefix", func(t *testing.T) {
		g := NewDomainGroup("purchase-orders", "/purchase-orders")
		assert.Equal(t, "purchase-orders", g.Name())
		assert.Equal(t, "/purchase-orders", g.Prefix())
	})

	t.Run("methods", func(t *testing.T) {
		engine := gin.New()
		ok := func(c *gin.Context) { c.Status(http.StatusOK) }
		g := NewDomainGroup("po", "/po")
		g.GET("/a", ok).POST("/a", ok).PUT("/a", ok).DELETE("/a", ok).Handle(http.MethodPatch, "/a", ok)
		g.RegisterRoutes(engine.Group("/api/v1"))

		for _, method := range []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodPatch} {
			assert.Equal(t, http.StatusOK, serve(engine, method, "/api/v1/po/a").Code, method)
		}
	})

	t.Run("middleware reaches subgroups", func(t *testing.T) {
		engine := gin.New()
		g := NewDomainGroup("admin", "/admin").Use(func(c *gin.Context) {
			c.Header("X-Group", "admin")
			c.Next()
		})
		g.Group("outbox", "/outbox").GET("/stats", func(c *gin.Context) { c.Status(http.StatusOK) })
		g.RegisterRoutes(engine.Group("/api/v1"))

		w := serve(engine, http.MethodGet, "/api/v1/admin/outbox/stats")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "admin", w.Header().Get("X-Group"))
	})
}
