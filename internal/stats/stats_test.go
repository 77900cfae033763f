package stats

import (
	"expvar"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewStatsUpdater(t *testing.T) {
	mux := http.NewServeMux()
	su := NewStatsUpdater(mux)
	assert.NotNil(t, su, "expected StatsUpdater to be non-nil")
	assert.NotNil(t, su.updateChan, "expected updateChan to be initialized")
	handler, pattern := mux.Handler(&http.Request{URL: &url.URL{Path: "/debug/vars"}, Method: http.MethodGet})
	assert.NotNil(t, handler, "expected handler for /debug/vars to be set")
	assert.Equal(t, "GET /debug/vars", pattern, "expected handler to be registered for GET method on /debug/vars")

	su.RegisterMetric(MessagesSent)
	su.Run()
	defer su.Stop()

	su.Incr(MessagesSent)
	su.Incr(MessagesSent)
	su.Decr(MessagesSent)
	// updates to metrics that were never registered are dropped
	su.Incr("NoSuchMetric")

	assert.Eventually(t, func() bool {
		v, ok := su.vars.Get(MessagesSent).(*expvar.Int)
		return ok && v.Value() == 1
	}, time.Second, 10*time.Millisecond, "expected metric to settle at 1")
}
