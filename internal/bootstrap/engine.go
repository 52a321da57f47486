package bootstrap

import (
	"github.com/certify/backend/internal/infrastructure/logger"
	"github.com/certify/backend/internal/interfaces/http/handler"
	"github.com/certify/backend/internal/interfaces/http/middleware"
	"github.com/certify/backend/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// NewEngine builds the HTTP engine.
// Middleware order:
//  1. RequestID - generate/propagate request ID
//  2. Recovery - catch panics
//  3. Logger - log requests
//  4. Tracing - server span, request attributes, error status
//  5. Metrics - request counters and latency
//  6. Security - security headers
//  7. CORS - only when origins are configured
//  8. BodyLimit - limit request body size
func (a *App) NewEngine() *gin.Engine {
	cfg := a.Config

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
		a.Logger.Warn("Invalid trusted proxies, trusting none", zap.Error(err))
		_ = engine.SetTrustedProxies(nil)
	}

	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(a.Logger))
	engine.Use(logger.GinMiddleware(a.Logger))
	engine.Use(middleware.TracingWithConfig(middleware.TracingConfig{
		ServiceName:    cfg.App.Name,
		Enabled:        a.Tracing.IsEnabled(),
		TracerProvider: a.Tracing.Provider(),
	}))
	engine.Use(middleware.SpanAttributes())
	engine.Use(middleware.SpanErrorMarker())
	engine.Use(a.httpMetrics.Middleware())
	engine.Use(middleware.Secure())

	if len(cfg.HTTP.CORSAllowOrigins) > 0 {
		corsConfig := middleware.DefaultCORSConfig()
		corsConfig.AllowOrigins = cfg.HTTP.CORSAllowOrigins
		engine.Use(middleware.CORSWithConfig(corsConfig))
	}

	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	systemHandler := handler.NewSystemHandler(cfg.App.Name, Version, a.HealthChecks()...)

	// Probes and scraping stay outside API versioning
	engine.GET("/health", systemHandler.Health)
	engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(a.Registry, promhttp.HandlerOpts{
		Registry: a.Registry,
	})))

	systemRoutes := router.NewDomainGroup("system", "/system")
	systemRoutes.GET("/info", systemHandler.GetSystemInfo)
	systemRoutes.GET("/ping", systemHandler.Ping)

	router.NewRouter(engine).
		Register(handler.CertificateRoutes(handler.NewCertificateHandler(a.Service))).
		Register(systemRoutes).
		Setup()

	return engine
}
