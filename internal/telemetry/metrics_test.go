package telemetry

import "testing"

func TestInitMetricsCreatesAllInstruments(t *testing.T) {
	m, err := InitMetrics()
	if err != nil {
		t.Fatalf("InitMetrics failed: %v", err)
	}

	if m.RequestCounter == nil || m.GenerationCounter == nil || m.QuizRepairs == nil {
		t.Fatalf("expected all counters initialized")
	}
	if m.RequestDuration == nil || m.IngestDuration == nil || m.SearchDuration == nil || m.GenerationDuration == nil {
		t.Fatalf("expected all histograms initialized")
	}

	// Record helpers must work against the default (noop) meter provider.
	m.RecordRequest("POST", "/documents", "success", 0.1)
	m.RecordIngest(1.5, 12, "completed")
	m.RecordSearch(0.02, 5)
	m.RecordGeneration("gemini-2.0-flash", "json", 0.8, true)
	m.RecordGeneration("gemini-2.0-flash", "text", 1.2, false)
	m.RecordQuizRepair(2)
}
