package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordIgnoredParameter(t *testing.T) {
	before := testutil.ToFloat64(IgnoredParameters.WithLabelValues("year_min"))
	RecordIgnoredParameter("year_min")
	assert.Equal(t, before+1, testutil.ToFloat64(IgnoredParameters.WithLabelValues("year_min")))
}

func TestRecordRatingPropagation(t *testing.T) {
	before := testutil.ToFloat64(RatingPropagations.WithLabelValues("ok"))
	RecordRatingPropagation("ok")
	RecordRatingPropagation("ok")
	assert.Equal(t, before+2, testutil.ToFloat64(RatingPropagations.WithLabelValues("ok")))
}

func TestObserveStore(t *testing.T) {
	before := testutil.CollectAndCount(StoreQueryDuration)
	done := ObserveStore("test", "observe_store_test")
	time.Sleep(time.Millisecond)
	done()
	assert.Equal(t, before+1, testutil.CollectAndCount(StoreQueryDuration))
}

func TestRecordSearch(t *testing.T) {
	// Histograms have no ToFloat64, so only check that collection works.
	RecordSearch(10*time.Millisecond, 3)
	assert.Equal(t, 1, testutil.CollectAndCount(SearchDuration))
	assert.Equal(t, 1, testutil.CollectAndCount(SearchResults))
}
