package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"adaayien/internal/core/server"
	mdw "adaayien/internal/transport/http/middleware"
	resp "adaayien/internal/transport/http/response"
	"adaayien/internal/transport/http/validate"
)

type Options struct {
	Name         string
	AllowOrigins []string
	MaxBodyBytes int64
	Timeout      time.Duration
	RPS          float64 // 每 IP
	Burst        int
	MaxInFlight  int64
}

func (o Options) withDefaults() Options {
	if o.MaxBodyBytes <= 0 {
		o.MaxBodyBytes = 16 << 20
	}
	if o.Timeout <= 0 {
		o.Timeout = 10 * time.Second
	}
	if o.RPS <= 0 {
		o.RPS = 50
	}
	if o.Burst <= 0 {
		o.Burst = 100
	}
	if o.MaxInFlight <= 0 {
		o.MaxInFlight = 300
	}
	return o
}

func newEngine(l *zap.Logger, o Options) *gin.Engine {
	o = o.withDefaults()
	validate.Setup()
	r := server.NewRouter(l, server.Options{Name: o.Name, AllowOrigins: o.AllowOrigins})
	r.Use(
		mdw.RequestID(),
		mdw.RateLimitPerIP(rate.Limit(o.RPS), o.Burst, 10*time.Minute),
		mdw.ConcurrencyLimit(o.MaxInFlight),
		mdw.MaxBodyBytes(o.MaxBodyBytes),
		mdw.Timeout(o.Timeout),
		mdw.Recovery(l),
		mdw.Metrics(),
		mdw.AccessLog(l),
	)
	r.NoRoute(func(c *gin.Context) { resp.Abort(c, http.StatusNotFound, "route not found") })

	// 健康检查
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, resp.OK(gin.H{"status": "ok"})) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	return r
}

// NewAPIEngine 用户端：路由直接挂在根路径
func NewAPIEngine(l *zap.Logger, reg *Registry, o Options) *gin.Engine {
	r := newEngine(l, o)
	reg.MountAllAPI(&r.RouterGroup)
	return r
}
