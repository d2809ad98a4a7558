package monitoring

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordDifficultyChange(t *testing.T) {
	up := testutil.ToFloat64(DifficultyChangeCounter.WithLabelValues("up"))
	down := testutil.ToFloat64(DifficultyChangeCounter.WithLabelValues("down"))

	RecordDifficultyChange(2, 3)
	RecordDifficultyChange(3, 3)
	RecordDifficultyChange(3, 2)
	RecordDifficultyChange(2, 1)

	assert.Equal(t, up+1, testutil.ToFloat64(DifficultyChangeCounter.WithLabelValues("up")))
	assert.Equal(t, down+2, testutil.ToFloat64(DifficultyChangeCounter.WithLabelValues("down")))
}

func TestInitIsIdempotent(t *testing.T) {
	assert.NotPanics(t, func() {
		Init()
		Init()
	})
}
