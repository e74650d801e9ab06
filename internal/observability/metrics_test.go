package observability

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordFunctions(t *testing.T) {
	hits := testutil.ToFloat64(DefaultMetrics.CacheHits)
	RecordCacheHit()
	assert.Equal(t, hits+1, testutil.ToFloat64(DefaultMetrics.CacheHits))

	rows := testutil.ToFloat64(DefaultMetrics.RowsEvaluated.WithLabelValues("Target Hit"))
	RecordRowEvaluated("Target Hit")
	RecordRowEvaluated("Target Hit")
	assert.Equal(t, rows+2, testutil.ToFloat64(DefaultMetrics.RowsEvaluated.WithLabelValues("Target Hit")))

	fetchErrs := testutil.ToFloat64(DefaultMetrics.PriceFetchErrors.WithLabelValues("test"))
	RecordPriceFetch("test", 0.05, nil)
	RecordPriceFetch("test", 0.05, errors.New("boom"))
	assert.Equal(t, fetchErrs+1, testutil.ToFloat64(DefaultMetrics.PriceFetchErrors.WithLabelValues("test")))

	RecordEvaluationRun("success", 1.5, 1700000000)
	assert.Equal(t, float64(1700000000), testutil.ToFloat64(DefaultMetrics.LastSuccessfulEvaluation))

	EvaluationStarted()
	active := testutil.ToFloat64(DefaultMetrics.ActiveEvaluations)
	EvaluationFinished()
	assert.Equal(t, active-1, testutil.ToFloat64(DefaultMetrics.ActiveEvaluations))
}

func TestHandlerExposesMetrics(t *testing.T) {
	RecordCacheMiss()

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "trade_outcome_lab_cache_misses_total"))
}
