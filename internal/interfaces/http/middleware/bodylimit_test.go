package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func bodyLimitRouter(limit int64) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(BodyLimit(limit))
	r.POST("/purchase-orders", func(c *gin.Context) {
		if _, err := io.ReadAll(c.Request.Body); err != nil {
			c.Status(http.StatusBadRequest)
			return
		}
		c.Status(http.StatusCreated)
	})
	return r
}

func TestBodyLimit(t *testing.T) {
	order := `{"supplier_name":"Acme","lines":[]}`

	tests := []struct {
		name          string
		limit         int64
		body          string
		contentLength int64
		wantStatus    int
	}{
		{"fits", 1024, order, int64(len(order)), http.StatusCreated},
		{"declared size too large", 16, order, int64(len(order)), http.StatusRequestEntityTooLarge},
		{"streamed body capped while reading", 16, order, -1, http.StatusBadRequest},
		{"zero disables the limit", 0, strings.Repeat("x", 4096), 4096, http.StatusCreated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/purchase-orders", strings.NewReader(tt.body))
			req.ContentLength = tt.contentLength
			w := httptest.NewRecorder()
			bodyLimitRouter(tt.limit).ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus == http.StatusRequestEntityTooLarge {
				assert.Contains(t, w.Body.String(), "REQUEST_TOO_LARGE")
			}
		})
	}
}
