package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds all application metrics
type Metrics struct {
	RequestCounter     metric.Int64Counter
	RequestDuration    metric.Float64Histogram
	IngestDuration     metric.Float64Histogram
	ChunksIndexed      metric.Int64Counter
	SearchDuration     metric.Float64Histogram
	GenerationCounter  metric.Int64Counter
	GenerationDuration metric.Float64Histogram
	QuizRepairs        metric.Int64Counter
}

// InitMetrics initializes all application metrics
func InitMetrics() (*Metrics, error) {
	meter := otel.Meter("pdf-study-platform")

	requestCounter, err := meter.Int64Counter(
		"http.requests.total",
		metric.WithDescription("Total HTTP requests"),
	)
	if err != nil {
		return nil, err
	}

	requestDuration, err := meter.Float64Histogram(
		"http.request.duration",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	ingestDuration, err := meter.Float64Histogram(
		"pdf.ingest.duration",
		metric.WithDescription("PDF ingestion duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	chunksIndexed, err := meter.Int64Counter(
		"pdf.chunks.indexed",
		metric.WithDescription("Total chunks embedded and indexed"),
	)
	if err != nil {
		return nil, err
	}

	searchDuration, err := meter.Float64Histogram(
		"search.duration",
		metric.WithDescription("Semantic search duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	generationCounter, err := meter.Int64Counter(
		"gemini.generations.total",
		metric.WithDescription("Total Gemini generation calls"),
	)
	if err != nil {
		return nil, err
	}

	generationDuration, err := meter.Float64Histogram(
		"gemini.generation.duration",
		metric.WithDescription("Gemini generation duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	quizRepairs, err := meter.Int64Counter(
		"quiz.questions.repaired",
		metric.WithDescription("Malformed quiz questions replaced with placeholders"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		RequestCounter:     requestCounter,
		RequestDuration:    requestDuration,
		IngestDuration:     ingestDuration,
		ChunksIndexed:      chunksIndexed,
		SearchDuration:     searchDuration,
		GenerationCounter:  generationCounter,
		GenerationDuration: generationDuration,
		QuizRepairs:        quizRepairs,
	}, nil
}

// RecordRequest records HTTP request metrics
func (m *Metrics) RecordRequest(method, path, status string, duration float64) {
	attrs := []attribute.KeyValue{
		attribute.String("http.method", method),
		attribute.String("http.path", path),
		attribute.String("http.status", status),
	}

	m.RequestCounter.Add(context.Background(), 1, metric.WithAttributes(attrs...))
	m.RequestDuration.Record(context.Background(), duration, metric.WithAttributes(attrs...))
}

// RecordIngest records PDF ingestion metrics
func (m *Metrics) RecordIngest(duration float64, chunks int64, status string) {
	attrs := []attribute.KeyValue{
		attribute.String("ingest.status", status),
	}

	m.IngestDuration.Record(context.Background(), duration, metric.WithAttributes(attrs...))
	if chunks > 0 {
		m.ChunksIndexed.Add(context.Background(), chunks, metric.WithAttributes(attrs...))
	}
}

// RecordSearch records semantic search metrics
func (m *Metrics) RecordSearch(duration float64, results int) {
	attrs := []attribute.KeyValue{
		attribute.Int("search.results", results),
	}

	m.SearchDuration.Record(context.Background(), duration, metric.WithAttributes(attrs...))
}

// RecordGeneration records a Gemini generation call
func (m *Metrics) RecordGeneration(model, mode string, duration float64, success bool) {
	attrs := []attribute.KeyValue{
		attribute.String("gemini.model", model),
		attribute.String("gemini.mode", mode),
		attribute.Bool("gemini.success", success),
	}

	m.GenerationCounter.Add(context.Background(), 1, metric.WithAttributes(attrs...))
	m.GenerationDuration.Record(context.Background(), duration, metric.WithAttributes(attrs...))
}

// RecordQuizRepair records placeholder substitutions during quiz generation
func (m *Metrics) RecordQuizRepair(count int64) {
	m.QuizRepairs.Add(context.Background(), count)
}
