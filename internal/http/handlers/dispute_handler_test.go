package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/ignatzorin/arbiter-backend/internal/http/middleware"
)

func setTestUser(userID uuid.UUID) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.ContextUserIDKey, userID)
		c.Next()
	}
}

func TestDisputeHandler_Create_Unauthorized(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handler := NewDisputeHandler(nil, 25)
	r.POST("/disputes", handler.Create)

	req, _ := http.NewRequest("POST", "/disputes", strings.NewReader(`{}`))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestDisputeHandler_Create_InvalidBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handler := NewDisputeHandler(nil, 25)
	r.POST("/disputes", setTestUser(uuid.New()), handler.Create)

	req, _ := http.NewRequest("POST", "/disputes", strings.NewReader(`{"mode":"live"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDisputeHandler_Get_InvalidUUID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handler := NewDisputeHandler(nil, 25)
	r.GET("/disputes/:id", setTestUser(uuid.New()), handler.Get)

	req, _ := http.NewRequest("GET", "/disputes/not-a-uuid", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDisputeHandler_AppendTurn_MissingSpeakerInMultipart(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handler := NewDisputeHandler(nil, 25)
	r.POST("/disputes/:id/turns", setTestUser(uuid.New()), handler.AppendTurn)

	body := strings.NewReader("--boundary--\r\n")
	req, _ := http.NewRequest("POST", "/disputes/"+uuid.NewString()+"/turns", body)
	req.Header.Set("Content-Type", "multipart/form-data; boundary=boundary")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestJudgmentHandler_Judge_Unauthorized(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handler := NewJudgmentHandler(nil, nil)
	r.POST("/disputes/:id/judge", handler.Judge)

	req, _ := http.NewRequest("POST", "/disputes/"+uuid.NewString()+"/judge", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestEntitlementHandler_Get_Unauthorized(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handler := NewEntitlementHandler(nil)
	r.GET("/entitlements", handler.Get)

	req, _ := http.NewRequest("GET", "/entitlements", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
