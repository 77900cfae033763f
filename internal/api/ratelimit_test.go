package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/chatfastnow/go-chatserver/internal/database"
	"github.com/stretchr/testify/assert"
)

func TestLimiterStore_Allow(t *testing.T) {
	store := newLimiterStore(authRateLimit, 2, limiterCleanupInterval)
	defer store.Stop()

	assert.True(t, store.Allow("1.2.3.4"), "expected first request to pass")
	assert.True(t, store.Allow("1.2.3.4"), "expected burst capacity to pass")
	assert.False(t, store.Allow("1.2.3.4"), "expected request beyond burst to be denied")

	// clients are limited independently
	assert.True(t, store.Allow("5.6.7.8"), "expected a different client to pass")
}

func Test_rateLimit(t *testing.T) {
	app := newTestApp(t, &database.MockChatRepository{})

	called := 0
	handler := app.rateLimit(func(w http.ResponseWriter, r *http.Request) {
		called++
		w.WriteHeader(http.StatusOK)
	})

	var lastCode int
	for range authRateBurst + 1 {
		req := httptest.NewRequest(http.MethodPost, "/api/login", nil)
		req.RemoteAddr = "10.0.0.1:54321"
		rr := httptest.NewRecorder()
		handler(rr, req)
		lastCode = rr.Code
	}

	assert.Equal(t, authRateBurst, called, "expected only the burst to reach the handler")
	assert.Equal(t, http.StatusTooManyRequests, lastCode, "expected the request over the burst to be rejected")

	// a different remote address gets its own bucket
	req := httptest.NewRequest(http.MethodPost, "/api/login", nil)
	req.RemoteAddr = "10.0.0.2:54321"
	rr := httptest.NewRecorder()
	handler(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestLimiterStore_Cleanup(t *testing.T) {
	store := newLimiterStore(authRateLimit, authRateBurst, 10*time.Millisecond)
	defer store.Stop()

	store.Allow("1.2.3.4")
	store.mu.Lock()
	store.clients["1.2.3.4"].lastSeen = time.Now().Add(-2 * limiterIdleCutoff)
	store.mu.Unlock()

	assert.Eventually(t, func() bool {
		store.mu.Lock()
		defer store.mu.Unlock()
		_, ok := store.clients["1.2.3.4"]
		return !ok
	}, time.Second, 10*time.Millisecond, "expected idle client to be evicted")
}
