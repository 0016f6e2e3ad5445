package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bapx/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testBodyLimits = BodyLimitConfig{MaxBytes: 64, MaxMultipartBytes: 4096}

func newBodyLimitRouter() *gin.Engine {
	router := gin.New()
	router.Use(RequestID(), BodyLimit(testBodyLimits))
	router.POST("/api/v1/documents", func(c *gin.Context) {
		raw, err := io.ReadAll(c.Request.Body)
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.String(http.StatusRequestEntityTooLarge, "cut off at %d", tooLarge.Limit)
			return
		}
		c.String(http.StatusOK, "%d", len(raw))
	})
	router.POST("/api/v1/documents/:id/attachments", func(c *gin.Context) {
		form, err := c.MultipartForm()
		if err != nil {
			c.String(http.StatusBadRequest, err.Error())
			return
		}
		c.String(http.StatusCreated, "%d", len(form.File["files[]"]))
	})
	router.GET("/api/v1/documents", func(c *gin.Context) {
		c.String(http.StatusOK, "list")
	})
	return router
}

func multipartUpload(t *testing.T, size int) (*bytes.Buffer, string) {
	t.Helper()
	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	fw, err := mw.CreateFormFile("files[]", "surat-jalan.pdf")
	require.NoError(t, err)
	_, err = fw.Write(bytes.Repeat([]byte("%"), size))
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return buf, mw.FormDataContentType()
}

func TestBodyLimit(t *testing.T) {
	router := newBodyLimitRouter()

	t.Run("small JSON command passes", func(t *testing.T) {
		body := `{"title":"Pompa air"}`
		req := httptest.NewRequest(http.MethodPost, "/api/v1/documents", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "21", w.Body.String())
	})

	t.Run("oversized JSON is refused before the handler runs", func(t *testing.T) {
		body := `{"description":"` + strings.Repeat("x", 100) + `"}`
		req := httptest.NewRequest(http.MethodPost, "/api/v1/documents", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set(RequestIDHeader, "req-bodylimit-1")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.NotNil(t, resp.Error)
		assert.Equal(t, dto.ErrCodePayloadTooLarge, resp.Error.Code)
		assert.Equal(t, "req-bodylimit-1", resp.Error.RequestID)
	})

	t.Run("upload gets the multipart budget", func(t *testing.T) {
		body, contentType := multipartUpload(t, 1024)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/documents/abc/attachments", body)
		req.Header.Set("Content-Type", contentType)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		assert.Equal(t, "1", w.Body.String())
	})

	t.Run("upload over the multipart budget is refused", func(t *testing.T) {
		body, contentType := multipartUpload(t, 8192)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/documents/abc/attachments", body)
		req.Header.Set("Content-Type", contentType)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
		assert.Contains(t, w.Body.String(), dto.ErrCodePayloadTooLarge)
	})

	t.Run("chunked body is cut off while reading", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/documents", strings.NewReader(strings.Repeat("x", 100)))
		req.Header.Set("Content-Type", "application/json")
		req.ContentLength = -1
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
		assert.Equal(t, "cut off at 64", w.Body.String())
	})

	t.Run("requests without a body pass", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/documents", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestBodyLimitConfig_LimitFor(t *testing.T) {
	tests := []struct {
		contentType string
		want        int64
	}{
		{"application/json", 64},
		{"multipart/form-data; boundary=xyz", 4096},
		{"MULTIPART/FORM-DATA; boundary=xyz", 4096},
		{"", 64},
		{"not a media type;;", 64},
	}
	for _, tt := range tests {
		t.Run(tt.contentType, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", nil)
			req.Header.Set("Content-Type", tt.contentType)
			assert.Equal(t, tt.want, testBodyLimits.limitFor(req))
		})
	}

	t.Run("multipart falls back to the JSON limit when unset", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.Header.Set("Content-Type", "multipart/form-data; boundary=xyz")
		assert.Equal(t, int64(64), BodyLimitConfig{MaxBytes: 64}.limitFor(req))
	})
}
