package routerx

import (
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Option represents a router configuration option.
type Option interface {
	Apply(*Options)
}

// Options holds the construction-time settings shared by all routers.
type Options struct {
	// Logger receives warnings such as fan-in mismatches.
	Logger *slog.Logger

	// TracerProvider is used to create the router's tracer.
	TracerProvider trace.TracerProvider

	// MeterProvider is used to create the router's counters.
	MeterProvider metric.MeterProvider

	// Descending orders top-k results from highest to lowest score.
	// Only NewTopkReduceRouter reads it.
	Descending bool

	// TopK caps the number of merged results; 0 keeps every key.
	// Only NewTopkReduceRouter reads it.
	TopK int
}

func defaultOptions() *Options {
	return &Options{
		Descending: true,
	}
}

func buildOptions(opts []Option) *Options {
	o := defaultOptions()
	for _, opt := range opts {
		opt.Apply(o)
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.TracerProvider == nil {
		o.TracerProvider = otel.GetTracerProvider()
	}
	if o.MeterProvider == nil {
		o.MeterProvider = otel.GetMeterProvider()
	}
	return o
}

// optionFunc is a function that implements Option.
type optionFunc func(*Options)

// Apply implements the Option interface for optionFunc.
func (f optionFunc) Apply(o *Options) {
	f(o)
}

// WithLogger sets the logger used for warnings.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(o *Options) {
		o.Logger = l
	})
}

// WithTracerProvider sets the OpenTelemetry tracer provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return optionFunc(func(o *Options) {
		o.TracerProvider = tp
	})
}

// WithMeterProvider sets the OpenTelemetry meter provider.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return optionFunc(func(o *Options) {
		o.MeterProvider = mp
	})
}

// WithDescending sets the sort direction of top-k results. It only affects
// NewTopkReduceRouter; other constructors ignore it.
func WithDescending(desc bool) Option {
	return optionFunc(func(o *Options) {
		o.Descending = desc
	})
}

// WithTopK caps the number of merged results. Zero or negative keeps all.
// It only affects NewTopkReduceRouter; other constructors ignore it.
func WithTopK(k int) Option {
	return optionFunc(func(o *Options) {
		o.TopK = k
	})
}
