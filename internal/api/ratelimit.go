package api

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	// authRateLimit is the allowed number of register/login attempts per
	// minute per client; authRateBurst is the burst capacity.
	authRateLimit          = 10
	authRateBurst          = 5
	limiterCleanupInterval = 5 * time.Minute
	limiterIdleCutoff      = 10 * time.Minute
)

// limiterStore maintains per-client token buckets and evicts idle entries.
type limiterStore struct {
	mu      sync.Mutex
	limit   rate.Limit
	burst   int
	clients map[string]*clientLimiter
	stopCh  chan struct{}
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newLimiterStore(limitPerMinute, burst int, cleanupInterval time.Duration) *limiterStore {
	s := &limiterStore{
		limit:   rate.Every(time.Minute / time.Duration(limitPerMinute)),
		burst:   burst,
		clients: make(map[string]*clientLimiter),
		stopCh:  make(chan struct{}),
	}
	go s.cleanupLoop(cleanupInterval)
	return s
}

func (s *limiterStore) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			cutoff := time.Now().Add(-limiterIdleCutoff)
			s.mu.Lock()
			for k, v := range s.clients {
				if v.lastSeen.Before(cutoff) {
					delete(s.clients, k)
				}
			}
			s.mu.Unlock()
		case <-s.stopCh:
			return
		}
	}
}

func (s *limiterStore) Stop() {
	close(s.stopCh)
}

func (s *limiterStore) Allow(key string) bool {
	s.mu.Lock()
	entry, ok := s.clients[key]
	if !ok {
		entry = &clientLimiter{limiter: rate.NewLimiter(s.limit, s.burst)}
		s.clients[key] = entry
	}
	entry.lastSeen = time.Now()
	s.mu.Unlock()

	return entry.limiter.Allow()
}

// rateLimit guards credential endpoints against brute forcing, keyed by
// remote IP.
func (s *ChatApp) rateLimit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			key = r.RemoteAddr
		}

		if !s.limiters.Allow(key) {
			errResp := NewTooManyRequestsError()
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}

		next(w, r)
	}
}
