package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	resp "adaayien/internal/transport/http/response"
)

func init() { gin.SetMode(gin.TestMode) }

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) resp.Resp {
	t.Helper()
	var out resp.Resp
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func ok(c *gin.Context) { c.JSON(http.StatusOK, resp.OK(nil)) }

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/x", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(KeyRequestID)) })

	w := serve(r, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.NotEmpty(t, w.Header().Get(KeyRequestID))
	assert.Equal(t, w.Header().Get(KeyRequestID), w.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(KeyRequestID, "rid-1")
	assert.Equal(t, "rid-1", serve(r, req).Body.String())
}

func TestRateLimitPerIP(t *testing.T) {
	r := gin.New()
	r.Use(RateLimitPerIP(0.001, 2, time.Minute))
	r.GET("/x", ok)

	for i := 0; i < 2; i++ {
		assert.Equal(t, http.StatusOK, serve(r, httptest.NewRequest(http.MethodGet, "/x", nil)).Code)
	}
	w := serve(r, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, http.StatusTooManyRequests, decode(t, w).Code)

	other := httptest.NewRequest(http.MethodGet, "/x", nil)
	other.RemoteAddr = "10.0.0.9:1234"
	assert.Equal(t, http.StatusOK, serve(r, other).Code)
}

func TestMaxBodyBytes(t *testing.T) {
	r := gin.New()
	r.Use(MaxBodyBytes(8))
	r.POST("/x", ok)

	w := serve(r, httptest.NewRequest(http.MethodPost, "/x", strings.NewReader(strings.Repeat("a", 64))))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)

	w = serve(r, httptest.NewRequest(http.MethodPost, "/x", strings.NewReader("tiny")))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestTimeout(t *testing.T) {
	r := gin.New()
	r.Use(Timeout(20 * time.Millisecond))
	r.GET("/slow", func(c *gin.Context) { <-c.Request.Context().Done() })

	w := serve(r, httptest.NewRequest(http.MethodGet, "/slow", nil))
	assert.Equal(t, http.StatusGatewayTimeout, w.Code)
	assert.Equal(t, "timeout", decode(t, w).Msg)
}

func TestRecovery(t *testing.T) {
	r := gin.New()
	r.Use(Recovery(zap.NewNop()))
	r.GET("/boom", func(*gin.Context) { panic("boom") })

	w := serve(r, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "internal error", decode(t, w).Msg)
}

func TestConcurrencyLimit_Busy(t *testing.T) {
	r := gin.New()
	r.Use(ConcurrencyLimit(1))
	entered, release := make(chan struct{}), make(chan struct{})
	r.GET("/hold", func(c *gin.Context) {
		close(entered)
		<-release
		c.Status(http.StatusOK)
	})
	r.GET("/x", ok)

	done := make(chan int)
	go func() { done <- serve(r, httptest.NewRequest(http.MethodGet, "/hold", nil)).Code }()
	<-entered

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	w := serve(r, httptest.NewRequest(http.MethodGet, "/x", nil).WithContext(ctx))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	close(release)
	assert.Equal(t, http.StatusOK, <-done)
}

func TestAccessLog_MasksSecrets(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	r := gin.New()
	r.Use(RequestID(), AccessLog(zap.New(core)))
	r.GET("/auth/verify-email/:token", func(c *gin.Context) { c.Status(http.StatusFound) })

	serve(r, httptest.NewRequest(http.MethodGet, "/auth/verify-email/abc123?password=hunter2&page=1", nil))

	require.Equal(t, 1, logs.Len())
	ctx := logs.All()[0].ContextMap()
	assert.Equal(t, "/auth/verify-email/****", ctx["path"])
	assert.Equal(t, "/auth/verify-email/:token", ctx["route"])
	q := ctx["query"].(map[string][]string)
	assert.Equal(t, []string{"****"}, q["password"])
	assert.Equal(t, []string{"1"}, q["page"])
	assert.NotEmpty(t, ctx["rid"])
}

func TestAccessLog_ErrorsOn5xx(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	r := gin.New()
	r.Use(AccessLog(zap.New(core)))
	r.GET("/x", func(c *gin.Context) {
		_ = c.Error(assert.AnError)
		c.Status(http.StatusInternalServerError)
	})

	serve(r, httptest.NewRequest(http.MethodGet, "/x", nil))
	require.Equal(t, 1, logs.Len())
	e := logs.All()[0]
	assert.Equal(t, zapcore.ErrorLevel, e.Level)
	assert.Contains(t, e.ContextMap()["errors"], assert.AnError.Error())
}
