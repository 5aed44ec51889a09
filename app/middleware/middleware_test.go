package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestCompressBody(t *testing.T) {
	assert.Equal(t, "", CompressBody(""))
	assert.Equal(t, `{"a":1,"b":[1,2]}`, CompressBody("{\n  \"a\": 1,\n  \"b\": [1, 2]\n}"))

	long := `{"content":"` + strings.Repeat("x", 2000) + `"}`
	out := CompressBody(long)
	assert.Len(t, out, maxLoggedBody+3)
	assert.True(t, strings.HasSuffix(out, "..."))
}

func TestRecovery(t *testing.T) {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.Use(Recovery(), Logger())
	engine.GET("/boom", func(c *gin.Context) { panic("boom") })
	engine.POST("/echo", func(c *gin.Context) {
		var body map[string]interface{}
		_ = c.ShouldBindJSON(&body)
		c.JSON(http.StatusOK, body)
	})

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"Internal Server Error"}`, w.Body.String())

	// the logger must leave the body readable for the handler
	w = httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader(`{ "k" : "v" }`)))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"k":"v"}`, w.Body.String())
}
