package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/FelixFunesFS/train-catering-creations-sub005/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func newBodyLimitRouter(limit int64) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(BodyLimit(limit))
	router.PUT("/invoices/:id/line-items", func(c *gin.Context) {
		if _, err := io.ReadAll(c.Request.Body); err != nil {
			c.String(http.StatusBadRequest, "unreadable body")
			return
		}
		c.String(http.StatusOK, "replaced")
	})
	router.GET("/invoices/:id/line-items", func(c *gin.Context) {
		c.String(http.StatusOK, "listed")
	})
	return router
}

func TestBodyLimit(t *testing.T) {
	items := `{"items":[{"title":"Smoked Brisket","quantity":3,"unit_price_cents":1500}]}`

	tests := []struct {
		name          string
		limit         int64
		method        string
		body          string
		contentLength int64
		wantStatus    int
		wantBody      string
	}{
		{"payload within limit", 1024, http.MethodPut, items, int64(len(items)), http.StatusOK, "replaced"},
		{"declared length over limit", 32, http.MethodPut, items, int64(len(items)), http.StatusRequestEntityTooLarge, dto.ErrCodePayloadTooLarge},
		{"unknown length cut off while reading", 32, http.MethodPut, items, -1, http.StatusBadRequest, "unreadable body"},
		{"GET without body", 8, http.MethodGet, "", 0, http.StatusOK, "listed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newBodyLimitRouter(tt.limit)
			var body io.Reader
			if tt.body != "" {
				body = strings.NewReader(tt.body)
			}
			req := httptest.NewRequest(tt.method, "/invoices/42/line-items", body)
			req.ContentLength = tt.contentLength
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.wantBody)
		})
	}
}
