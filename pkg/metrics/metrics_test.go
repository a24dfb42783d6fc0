package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsAreNoops(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.PageFetched(nil, time.Second)
		m.PageParsed(errors.New("boom"))
		m.ProcessorRan("tfidf", time.Second)
		m.ProfileSaved("user")
		m.CacheLookup(true)
	})
}

func TestRecordingMethods(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.PageFetched(nil, 10*time.Millisecond)
	m.PageFetched(errors.New("reset"), 10*time.Millisecond)
	m.PageParsed(nil)
	m.ProfileSaved("user")
	m.ProfileSaved("user")
	m.CacheLookup(true)
	m.CacheLookup(false)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.PagesFetchedTotal.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PagesFetchedTotal.WithLabelValues("error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PagesParsedTotal.WithLabelValues("ok")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ProfilesPersisted.WithLabelValues("user")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheHitsTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheMissesTotal))
}

func TestIndexListsRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.PageFetched(nil, time.Millisecond)
	m.PageParsed(nil)
	m.ProcessorRan("tfidf", time.Millisecond)
	m.ProfileSaved("topic")
	m.CacheLookup(true)
	m.CacheLookup(false)

	families, err := reg.Gather()
	require.NoError(t, err)
	registered := map[string]bool{}
	for _, f := range families {
		registered[f.GetName()] = true
	}

	rec := httptest.NewRecorder()
	newServeMux().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	for _, c := range pipelineCollectors {
		assert.True(t, registered[c.name], c.name)
		assert.Contains(t, body, "<code>"+c.name+"</code>")
	}
}
