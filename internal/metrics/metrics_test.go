package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegister(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NoError(t, Register(reg))
	assert.Error(t, Register(reg), "double registration is reported")
}

func TestRecordPipelineIteration(t *testing.T) {
	pipelineIterations.Reset()

	RecordPipelineIteration(ResultPublished, 0.02)
	RecordPipelineIteration(ResultPublished, 0.03)
	RecordPipelineIteration(ResultNoFrame, 0)

	assert.Equal(t, 2.0, testutil.ToFloat64(pipelineIterations.WithLabelValues(ResultPublished)))
	assert.Equal(t, 1.0, testutil.ToFloat64(pipelineIterations.WithLabelValues(ResultNoFrame)))
	assert.Positive(t, testutil.CollectAndCount(pipelineDuration))
}

func TestRecordRegionsIgnoresZero(t *testing.T) {
	regionsDetected.Reset()

	RecordRegions("outer", 0)
	assert.Zero(t, testutil.CollectAndCount(regionsDetected))

	RecordRegions("outer", 2)
	RecordRegions("inner", 3)
	assert.Equal(t, 2.0, testutil.ToFloat64(regionsDetected.WithLabelValues("outer")))
	assert.Equal(t, 3.0, testutil.ToFloat64(regionsDetected.WithLabelValues("inner")))
}

func TestStreamGauge(t *testing.T) {
	streamsActive.Set(0)

	StreamStarted()
	StreamStarted()
	StreamEnded()

	assert.Equal(t, 1.0, testutil.ToFloat64(streamsActive))
}
