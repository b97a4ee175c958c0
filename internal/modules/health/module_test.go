package health

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"tv_relay/internal/modules/health/service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestReadyzFollowsState(t *testing.T) {
	gin.SetMode(gin.TestMode)
	st := service.NewState()
	r := gin.New()
	RegisterRoutes(r, st)

	get := func(path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		return rec
	}

	assert.Equal(t, http.StatusOK, get("/livez").Code)
	assert.Equal(t, http.StatusServiceUnavailable, get("/readyz").Code)

	st.SetReady(true)
	st.TouchSignal(time.Unix(1700000000, 0), true)

	assert.Equal(t, http.StatusOK, get("/readyz").Code)
	body := get("/healthz").Body.String()
	assert.Contains(t, body, `"ready":true`)
	assert.Contains(t, body, `"failures":1`)
	assert.Contains(t, body, `"lastSignalUnix":1700000000`)
}
