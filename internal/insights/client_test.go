package insights

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"palatlas-go/internal/logger"
	"palatlas-go/internal/types"
)

// recordingTimer fires immediately and remembers every requested wait.
type recordingTimer struct {
	waits []time.Duration
	c     chan time.Time
}

func newRecordingTimer() *recordingTimer {
	return &recordingTimer{c: make(chan time.Time, 1)}
}

func (t *recordingTimer) Start(d time.Duration) {
	t.waits = append(t.waits, d)
	t.c <- time.Now()
}

func (t *recordingTimer) Stop() {}

func (t *recordingTimer) C() <-chan time.Time { return t.c }

func (t *recordingTimer) total() time.Duration {
	var sum time.Duration
	for _, w := range t.waits {
		sum += w
	}
	return sum
}

func newTestClient(baseURL string, attempts int, timer *recordingTimer) *Client {
	return NewClient(Config{
		BaseURL:     baseURL,
		APIKey:      "test-key",
		HTTPTimeout: 2 * time.Second,
		MaxAttempts: attempts,
		BackoffUnit: time.Second,
	}, logger.Discard(), WithTimer(timer))
}

const placesBody = `{
  "results": {"entities": [
    {"name": "Cafe Uno", "entity_id": "p1", "properties": {"business_rating": "4.5"}},
    {"name": "Bar Dos", "entity_id": "p2", "properties": {"business_rating": "N/A"}}
  ]},
  "query": {"localities": {"filter": [{"name": "Lisbon"}]}}
}`

func TestFetch_SendsQueryParameters(t *testing.T) {
	var got *http.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(placesBody))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, 3, newRecordingTimer())
	coll, err := c.Fetch(context.Background(), Query{
		Kind:         types.KindPlace,
		City:         "lisbon",
		CountryCode:  "PT",
		Limit:        15,
		SignalTags:   "urn:tag:a,urn:tag:b",
		SignalWeight: 0.5,
	})
	require.NoError(t, err)
	require.NotNil(t, got)

	q := got.URL.Query()
	assert.Equal(t, "urn:entity:place", q.Get("filter.type"))
	assert.Equal(t, "lisbon", q.Get("filter.location.query"))
	assert.Equal(t, "PT", q.Get("filter.geocode.country_code"))
	assert.Equal(t, "15", q.Get("take"))
	assert.Equal(t, []string{"urn:tag:a", "urn:tag:b"}, q["signal.interests.tags"])
	assert.Equal(t, "0.5", q.Get("signal.interests.tags.weight"))
	assert.Equal(t, "test-key", got.Header.Get("X-Api-Key"))

	assert.Len(t, coll.Entities(), 2)
	assert.Equal(t, "Lisbon", coll.LocalityName())
}

func TestFetch_OmitsSignalWhenNoTags(t *testing.T) {
	var query map[string][]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.Query()
		w.Write([]byte(`{"results":{"entities":[]}}`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, 3, newRecordingTimer())
	coll, err := c.Fetch(context.Background(), Query{Kind: types.KindBrand, City: "oslo", CountryCode: "NO", Limit: 5})
	require.NoError(t, err)
	assert.Empty(t, coll.Entities())
	assert.NotContains(t, query, "signal.interests.tags")
	assert.NotContains(t, query, "signal.interests.tags.weight")
}

func TestFetch_RetriesTransientThenGivesUp(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	timer := newRecordingTimer()
	c := newTestClient(srv.URL, 3, timer)
	coll, err := c.Fetch(context.Background(), Query{Kind: types.KindPlace, City: "x", CountryCode: "US", Limit: 1})

	assert.Nil(t, coll)
	assert.True(t, errors.Is(err, ErrTransient))
	assert.EqualValues(t, 3, atomic.LoadInt32(&calls))
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, timer.waits)
	assert.Equal(t, 3*time.Second, timer.total())
}

func TestFetch_WaitsDoubleForLargerBudgets(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Write([]byte("<html>not json</html>"))
	}))
	defer srv.Close()

	timer := newRecordingTimer()
	c := newTestClient(srv.URL, 5, timer)
	_, err := c.Fetch(context.Background(), Query{Kind: types.KindBrand, City: "x", CountryCode: "US", Limit: 1})

	assert.True(t, errors.Is(err, ErrMalformed))
	assert.EqualValues(t, 5, atomic.LoadInt32(&calls))
	// 1 + 2 + 4 + 8 units
	assert.Equal(t, 15*time.Second, timer.total())
}

func TestFetch_AuthFailureShortCircuits(t *testing.T) {
	for _, status := range []int{http.StatusUnauthorized, http.StatusForbidden} {
		var calls int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			w.WriteHeader(status)
		}))

		timer := newRecordingTimer()
		c := newTestClient(srv.URL, 3, timer)
		coll, err := c.Fetch(context.Background(), Query{Kind: types.KindPlace, City: "x", CountryCode: "US", Limit: 1})
		srv.Close()

		assert.Nil(t, coll)
		assert.True(t, errors.Is(err, ErrAuth), "status %d", status)
		assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
		assert.Empty(t, timer.waits)
	}
}

func TestFetch_RecoversAfterTransientFailure(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(placesBody))
	}))
	defer srv.Close()

	timer := newRecordingTimer()
	c := newTestClient(srv.URL, 3, timer)
	coll, err := c.Fetch(context.Background(), Query{Kind: types.KindPlace, City: "x", CountryCode: "US", Limit: 2})

	require.NoError(t, err)
	assert.Len(t, coll.Entities(), 2)
	assert.Equal(t, []time.Duration{time.Second}, timer.waits)
}

func TestFetch_MissingEntitiesIsMalformed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"results":{}}`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, 2, newRecordingTimer())
	_, err := c.Fetch(context.Background(), Query{Kind: types.KindPlace, City: "x", CountryCode: "US", Limit: 1})
	assert.True(t, errors.Is(err, ErrMalformed))
}

func TestSplitSignalTags(t *testing.T) {
	assert.Nil(t, SplitSignalTags(""))
	assert.Equal(t, []string{"urn:tag:single"}, SplitSignalTags("urn:tag:single"))
	assert.Equal(t, []string{"a", "b"}, SplitSignalTags("a, b,"))
}

func TestDo_CanceledContextKeepsCause(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(placesBody))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c := newTestClient(srv.URL, 1, newRecordingTimer())
	_, err := c.do(ctx, srv.URL)

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTransient))
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, "canceled", outcome(err))
}
