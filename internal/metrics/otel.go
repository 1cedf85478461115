package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

var (
	promReaderFactory = prometheusComponents
	otlpReaderFactory = buildOTLPReader
	instrumentFactory = newOtelInstruments
)

// TelemetryConfig controls how metrics are exported.
type TelemetryConfig struct {
	Enabled      bool
	Port         string
	ServiceName  string
	OtlpEndpoint string
	OtlpInsecure bool
}

// Setup configures OpenTelemetry metrics with a Prometheus exporter and optional OTLP exporter.
// It returns a Recorder, the Prometheus HTTP handler, and a shutdown function.
func Setup(ctx context.Context, cfg TelemetryConfig) (*Recorder, http.Handler, func(context.Context) error, error) {
	if !cfg.Enabled {
		return NewRecorder(), nil, func(context.Context) error { return nil }, nil
	}

	if cfg.ServiceName == "" {
		cfg.ServiceName = "competition-hub"
	}

	promReader, promHandler, err := promReaderFactory()
	if err != nil {
		return nil, nil, nil, err
	}

	opts := []sdkmetric.Option{sdkmetric.WithReader(promReader)}

	if cfg.OtlpEndpoint != "" {
		otlpReader, err := otlpReaderFactory(ctx, cfg.OtlpEndpoint, cfg.OtlpInsecure)
		if err != nil {
			return nil, nil, nil, err
		}
		opts = append(opts, sdkmetric.WithReader(otlpReader))
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceName(cfg.ServiceName)),
	)
	if err != nil {
		return nil, nil, nil, err
	}

	opts = append(opts, sdkmetric.WithResource(res))

	provider := sdkmetric.NewMeterProvider(opts...)

	otelInst, err := instrumentFactory(provider)
	if err != nil {
		return nil, nil, nil, err
	}

	rec := newRecorder(otelInst)
	shutdown := func(c context.Context) error {
		return provider.Shutdown(c)
	}

	return rec, promHandler, shutdown, nil
}

func buildOTLPReader(ctx context.Context, endpoint string, insecure bool) (sdkmetric.Reader, error) {
	otlpOpts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(endpoint)}
	if insecure {
		otlpOpts = append(otlpOpts, otlpmetrichttp.WithInsecure())
	}
	otlpExp, err := otlpmetrichttp.New(ctx, otlpOpts...)
	if err != nil {
		return nil, err
	}
	return sdkmetric.NewPeriodicReader(otlpExp, sdkmetric.WithInterval(15*time.Second)), nil
}

func prometheusComponents() (sdkmetric.Reader, http.Handler, error) {
	reg := prometheus.NewRegistry()
	promExp, err := promexporter.New(promexporter.WithRegisterer(reg))
	if err != nil {
		return nil, nil, err
	}
	return promExp, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), nil
}

type otelInstruments struct {
	ctx context.Context

	frames         metric.Int64Counter
	frameErrors    metric.Int64Counter
	frameLatencyMs metric.Float64Histogram

	events          metric.Int64Counter
	eventsDebounced metric.Int64Counter

	databaseLoads     metric.Int64Counter
	databaseLatencyMs metric.Float64Histogram

	zipExtractions metric.Int64Counter
	zipErrors      metric.Int64Counter
	zipFiles       metric.Int64Counter

	connections metric.Int64UpDownCounter
}

func newOtelInstruments(provider metric.MeterProvider) (*otelInstruments, error) {
	meter := provider.Meter("competition-hub")
	ctx := context.Background()

	frames, err := meter.Int64Counter("hub_frames_total")
	if err != nil {
		return nil, err
	}
	frameErrors, err := meter.Int64Counter("hub_frame_errors_total")
	if err != nil {
		return nil, err
	}
	frameLatency, err := meter.Float64Histogram("hub_frame_duration_ms")
	if err != nil {
		return nil, err
	}
	events, err := meter.Int64Counter("hub_events_published_total")
	if err != nil {
		return nil, err
	}
	eventsDebounced, err := meter.Int64Counter("hub_events_debounced_total")
	if err != nil {
		return nil, err
	}
	databaseLoads, err := meter.Int64Counter("hub_database_loads_total")
	if err != nil {
		return nil, err
	}
	databaseLatency, err := meter.Float64Histogram("hub_database_load_duration_ms")
	if err != nil {
		return nil, err
	}
	zipExtractions, err := meter.Int64Counter("hub_zip_extractions_total")
	if err != nil {
		return nil, err
	}
	zipErrors, err := meter.Int64Counter("hub_zip_errors_total")
	if err != nil {
		return nil, err
	}
	zipFiles, err := meter.Int64Counter("hub_zip_files_total")
	if err != nil {
		return nil, err
	}
	connections, err := meter.Int64UpDownCounter("hub_producer_connections")
	if err != nil {
		return nil, err
	}

	return &otelInstruments{
		ctx:               ctx,
		frames:            frames,
		frameErrors:       frameErrors,
		frameLatencyMs:    frameLatency,
		events:            events,
		eventsDebounced:   eventsDebounced,
		databaseLoads:     databaseLoads,
		databaseLatencyMs: databaseLatency,
		zipExtractions:    zipExtractions,
		zipErrors:         zipErrors,
		zipFiles:          zipFiles,
		connections:       connections,
	}, nil
}

func (o *otelInstruments) recordFrame(frameType string, status int, duration time.Duration) {
	if o == nil {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String(AttrFrameType, frameType),
		attribute.Int(AttrStatus, status),
	}
	o.frames.Add(o.ctx, 1, metric.WithAttributes(attrs...))
	o.frameLatencyMs.Record(o.ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))
	if status >= 400 {
		o.frameErrors.Add(o.ctx, 1, metric.WithAttributes(attrs...))
	}
}

func (o *otelInstruments) recordEvent(kind string, debounced bool) {
	if o == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String(AttrEventKind, kind))
	if debounced {
		o.eventsDebounced.Add(o.ctx, 1, attrs)
		return
	}
	o.events.Add(o.ctx, 1, attrs)
}

func (o *otelInstruments) recordDatabaseLoad(duration time.Duration) {
	if o == nil {
		return
	}
	o.databaseLoads.Add(o.ctx, 1)
	o.databaseLatencyMs.Record(o.ctx, float64(duration.Milliseconds()))
}

func (o *otelInstruments) recordZipExtraction(kind string, files int, err error) {
	if o == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String(AttrResource, kind))
	o.zipExtractions.Add(o.ctx, 1, attrs)
	o.zipFiles.Add(o.ctx, int64(files), attrs)
	if err != nil {
		o.zipErrors.Add(o.ctx, 1, attrs)
	}
}

func (o *otelInstruments) recordConnection(delta int) {
	if o == nil {
		return
	}
	o.connections.Add(o.ctx, int64(delta))
}
