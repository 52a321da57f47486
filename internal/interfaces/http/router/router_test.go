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

	assert.NotNil(t, r)
	assert.Equal(t, "v1", r.apiVersion)
	assert.Empty(t, r.registrars)
}

func TestRouterWithAPIVersion(t *testing.T) {
	r := NewRouter(gin.New(), WithAPIVersion("v2"))
	assert.Equal(t, "v2", r.apiVersion)
}

func TestRouterSetup(t *testing.T) {
	engine := gin.New()
	r := NewRouter(engine)

	group := NewDomainGroup("certificates", "/certificates")
	group.POST("", func(c *gin.Context) {
		c.String(http.StatusCreated, "created")
	})
	group.GET("/:id", func(c *gin.Context) {
		c.String(http.StatusOK, c.Param("id"))
	})

	r.Register(group).Setup()

	w := serve(engine, http.MethodPost, "/api/v1/certificates")
	assert.Equal(t, http.StatusCreated, w.Code)

	w = serve(engine, http.MethodGet, "/api/v1/certificates/u1")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "u1", w.Body.String())

	w = serve(engine, http.MethodGet, "/api/v2/certificates/u1")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDomainGroup(t *testing.T) {
	t.Run("name and prefix", func(t *testing.T) {
		g := NewDomainGroup("certificates", "/certificates")
		assert.Equal(t, "certificates", g.Name())
		assert.Equal(t, "/certificates", g.Prefix())
	})

	t.Run("handle arbitrary method", func(t *testing.T) {
		engine := gin.New()
		g := NewDomainGroup("test", "/test")
		g.Handle(http.MethodHead, "/items", func(c *gin.Context) {
			c.Status(http.StatusNoContent)
		})
		g.RegisterRoutes(engine.Group("/api/v1"))

		assert.Equal(t, http.StatusNoContent, serve(engine, http.MethodHead, "/api/v1/test/items").Code)
	})

	t.Run("middleware is scoped to the group", func(t *testing.T) {
		engine := gin.New()
		g := NewDomainGroup("test", "/test")
		g.Use(func(c *gin.Context) {
			c.Header("X-Test-Middleware", "applied")
			c.Next()
		})
		g.GET("/items", func(c *gin.Context) {
			c.String(http.StatusOK, "ok")
		})

		api := engine.Group("/api/v1")
		g.RegisterRoutes(api)
		api.GET("/other", func(c *gin.Context) {
			c.String(http.StatusOK, "ok")
		})

		assert.Equal(t, "applied", serve(engine, http.MethodGet, "/api/v1/test/items").Header().Get("X-Test-Middleware"))
		assert.Empty(t, serve(engine, http.MethodGet, "/api/v1/other").Header().Get("X-Test-Middleware"))
	})

	t.Run("subgroups nest under the parent prefix", func(t *testing.T) {
		engine := gin.New()
		g := NewDomainGroup("certificates", "/certificates")
		g.Group("artifacts", "/artifacts").GET("/:id", func(c *gin.Context) {
			c.String(http.StatusOK, "artifact "+c.Param("id"))
		})
		g.RegisterRoutes(engine.Group("/api/v1"))

		w := serve(engine, http.MethodGet, "/api/v1/certificates/artifacts/u1")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "artifact u1", w.Body.String())
	})
}
