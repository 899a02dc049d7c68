package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/mhalvorsen/gigbook/backend/pkg/response"
)

func rateLimitedRouter(rl *RateLimiter) *gin.Engine {
	router := gin.New()
	router.Use(rl.Middleware())
	router.GET("/peek", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	return router
}

func peekFrom(router *gin.Engine, addr string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/peek", nil)
	req.RemoteAddr = addr
	router.ServeHTTP(w, req)
	return w
}

func TestRateLimit_AllowsWithinBudget(t *testing.T) {
	router := rateLimitedRouter(NewRateLimiter(10, 5))

	for i := 0; i < 5; i++ {
		w := peekFrom(router, "192.168.1.1:12345")
		if w.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d, expected %d", i+1, w.Code, http.StatusOK)
		}
	}
}

func TestRateLimit_RejectsOverBudget(t *testing.T) {
	router := rateLimitedRouter(NewRateLimiter(1, 2))

	var last *httptest.ResponseRecorder
	for i := 0; i < 5; i++ {
		last = peekFrom(router, "10.0.0.1:12345")
	}

	if last.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, expected %d", last.Code, http.StatusTooManyRequests)
	}

	var resp response.Response
	if err := json.Unmarshal(last.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if resp.Code != http.StatusTooManyRequests {
		t.Errorf("body code = %d, expected %d", resp.Code, http.StatusTooManyRequests)
	}
}

func TestRateLimit_BudgetIsPerIP(t *testing.T) {
	router := rateLimitedRouter(NewRateLimiter(1, 1))

	if w := peekFrom(router, "10.0.0.1:12345"); w.Code != http.StatusOK {
		t.Errorf("first IP: status = %d, expected %d", w.Code, http.StatusOK)
	}
	if w := peekFrom(router, "10.0.0.1:12345"); w.Code != http.StatusTooManyRequests {
		t.Errorf("first IP second hit: status = %d, expected %d", w.Code, http.StatusTooManyRequests)
	}

	// A different caller still has its own burst.
	if w := peekFrom(router, "10.0.0.2:54321"); w.Code != http.StatusOK {
		t.Errorf("second IP: status = %d, expected %d", w.Code, http.StatusOK)
	}
}
