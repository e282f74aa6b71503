package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"adaayien/internal/apperr"
)

func run(t *testing.T, err error) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	Fail(c, err)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w, body
}

func TestFail_MapsKind(t *testing.T) {
	gin.SetMode(gin.TestMode)

	w, body := run(t, apperr.Validation(map[string]string{"email": "must be a valid email"}))
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "ValidationError", body["error"])
	assert.Equal(t, map[string]any{"email": "must be a valid email"}, body["data"].(map[string]any)["fields"])

	w, body = run(t, apperr.Forbidden("nope").WithData("role", "customer"))
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "customer", body["data"].(map[string]any)["role"])
	assert.EqualValues(t, 403, body["code"])
}

func TestFail_SanitizesInternal(t *testing.T) {
	gin.SetMode(gin.ReleaseMode)
	defer gin.SetMode(gin.TestMode)

	w, body := run(t, errors.New("pq: password authentication failed"))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Internal", body["error"])
	assert.NotContains(t, body["msg"], "pq:")

	_, body = run(t, apperr.Internal("load cart failed", errors.New("disk on fire")))
	assert.Equal(t, "load cart failed", body["msg"])
}

func TestOKNeverNullData(t *testing.T) {
	r := OK(nil)
	assert.Equal(t, CodeOK, r.Code)
	assert.NotNil(t, r.Data)
}
