package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	metric := &dto.Metric{}
	if err := c.Write(metric); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}
	return metric.Counter.GetValue()
}

func TestRecordProviderAttempt(t *testing.T) {
	providerAttemptsTotal.Reset()
	providerDuration.Reset()

	RecordProviderAttempt("lrchub", "timeout", 90)
	RecordProviderAttempt("lrchub", "timeout", 90)
	RecordProviderAttempt("lrclib", "success", 0.4)

	if got := counterValue(t, providerAttemptsTotal.WithLabelValues("lrchub", "timeout")); got != 2 {
		t.Errorf("Expected counter value 2, got %f", got)
	}
	if got := counterValue(t, providerAttemptsTotal.WithLabelValues("lrclib", "success")); got != 1 {
		t.Errorf("Expected counter value 1, got %f", got)
	}

	metric := &dto.Metric{}
	hist, err := providerDuration.GetMetricWithLabelValues("lrchub")
	if err != nil {
		t.Fatalf("Failed to get histogram: %v", err)
	}
	if err := hist.(prometheus.Metric).Write(metric); err != nil {
		t.Fatalf("Failed to write histogram: %v", err)
	}
	if metric.Histogram.GetSampleCount() != 2 {
		t.Errorf("Expected 2 samples, got %d", metric.Histogram.GetSampleCount())
	}
}

func TestRecordServedBy(t *testing.T) {
	fallbackDepth.Reset()

	RecordServedBy("github")
	RecordServedBy("none")

	if got := counterValue(t, fallbackDepth.WithLabelValues("github")); got != 1 {
		t.Errorf("Expected counter value 1, got %f", got)
	}
}

func TestRecordTranslation(t *testing.T) {
	translationRequestsTotal.Reset()
	translationSourceTotal.Reset()

	RecordTranslation("bulk", "success")
	RecordTranslation("mixed", "mismatch")
	RecordTranslationSource("registry")

	if got := counterValue(t, translationRequestsTotal.WithLabelValues("mixed", "mismatch")); got != 1 {
		t.Errorf("Expected counter value 1, got %f", got)
	}
	if got := counterValue(t, translationSourceTotal.WithLabelValues("registry")); got != 1 {
		t.Errorf("Expected counter value 1, got %f", got)
	}
}

func TestRecordMixedLines(t *testing.T) {
	before := counterValue(t, mixedLinesTotal)
	RecordMixedLines(3)
	if got := counterValue(t, mixedLinesTotal); got != before+3 {
		t.Errorf("Expected %f, got %f", before+3, got)
	}
}

func TestRecordActionAndStale(t *testing.T) {
	actionsTotal.Reset()
	staleDiscardsTotal.Reset()

	RecordAction("lock", "success")
	RecordStale("reload")
	RecordStale("reload")

	if got := counterValue(t, actionsTotal.WithLabelValues("lock", "success")); got != 1 {
		t.Errorf("Expected counter value 1, got %f", got)
	}
	if got := counterValue(t, staleDiscardsTotal.WithLabelValues("reload")); got != 2 {
		t.Errorf("Expected counter value 2, got %f", got)
	}
}
