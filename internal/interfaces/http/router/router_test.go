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

func serve(engine *gin.Engine, method, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(method, target, nil))
	return w
}

func text(body string) gin.HandlerFunc {
	return func(c *gin.Context) { c.String(http.StatusOK, body) }
}

func TestNewRouter(t *testing.T) {
	r := NewRouter(gin.New())

	assert.Equal(t, "v1", r.apiVersion)
	assert.Equal(t, "/api/v1", r.BasePath())
	assert.Empty(t, r.registrars)

	r = NewRouter(gin.New(), WithAPIVersion("v2"))
	assert.Equal(t, "/api/v2", r.BasePath())
}

func TestRouterSetup(t *testing.T) {
	engine := gin.New()
	r := NewRouter(engine)

	serials := NewDomainGroup("serials", "/serials").POST("/expand", text("expanded"))
	calendar := NewDomainGroup("calendar", "/calendar").GET("/today", text("today"))
	r.Register(serials).Register(calendar).Setup()

	w := serve(engine, http.MethodPost, "/api/v1/serials/expand")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "expanded", w.Body.String())

	w = serve(engine, http.MethodGet, "/api/v1/calendar/today")
	assert.Equal(t, "today", w.Body.String())

	w = serve(engine, http.MethodGet, "/calendar/today")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDomainGroup(t *testing.T) {
	t.Run("name and prefix", func(t *testing.T) {
		g := NewDomainGroup("bulk", "/bulk")
		assert.Equal(t, "bulk", g.Name())
		assert.Equal(t, "/bulk", g.Prefix())
	})

	t.Run("handle registers any method", func(t *testing.T) {
		engine := gin.New()
		g := NewDomainGroup("auth", "/auth")
		g.Handle(http.MethodDelete, "/sessions", func(c *gin.Context) { c.Status(http.StatusNoContent) })
		g.RegisterRoutes(engine.Group("/api/v1"))

		w := serve(engine, http.MethodDelete, "/api/v1/auth/sessions")
		assert.Equal(t, http.StatusNoContent, w.Code)
	})

	t.Run("middleware applies to group only", func(t *testing.T) {
		engine := gin.New()
		api := engine.Group("/api/v1")

		limited := NewDomainGroup("warranty", "/warranty").Use(func(c *gin.Context) {
			c.Header("X-Limited", "yes")
			c.Next()
		})
		limited.GET("/:serial", text("device"))
		limited.RegisterRoutes(api)

		NewDomainGroup("calendar", "/calendar").GET("/today", text("today")).RegisterRoutes(api)

		w := serve(engine, http.MethodGet, "/api/v1/warranty/SN1")
		assert.Equal(t, "yes", w.Header().Get("X-Limited"))

		w = serve(engine, http.MethodGet, "/api/v1/calendar/today")
		assert.Empty(t, w.Header().Get("X-Limited"))
	})

	t.Run("subgroups nest under parent prefix", func(t *testing.T) {
		engine := gin.New()
		g := NewDomainGroup("bulk", "/bulk")
		g.POST("/devices", text("devices"))
		g.Group("runs", "/runs").GET("", text("runs")).GET("/:id", text("run"))
		g.RegisterRoutes(engine.Group("/api/v1"))

		assert.Equal(t, "runs", serve(engine, http.MethodGet, "/api/v1/bulk/runs").Body.String())
		assert.Equal(t, "run", serve(engine, http.MethodGet, "/api/v1/bulk/runs/abc").Body.String())
		assert.Equal(t, "devices", serve(engine, http.MethodPost, "/api/v1/bulk/devices").Body.String())
	})
}

func TestRouterRoutes(t *testing.T) {
	r := NewRouter(gin.New())

	bulk := NewDomainGroup("bulk", "/bulk")
	bulk.POST("/devices", text(""))
	bulk.Group("runs", "/runs").GET("", text("")).GET("/:id", text(""))

	r.Register(bulk).Register(NewDomainGroup("system", "/system").GET("/info", text("")))

	assert.Equal(t, []Route{
		{Group: "bulk", Method: http.MethodPost, Path: "/bulk/devices"},
		{Group: "runs", Method: http.MethodGet, Path: "/bulk/runs"},
		{Group: "runs", Method: http.MethodGet, Path: "/bulk/runs/:id"},
		{Group: "system", Method: http.MethodGet, Path: "/system/info"},
	}, r.Routes())
}
