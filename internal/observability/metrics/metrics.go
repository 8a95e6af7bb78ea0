package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

// Metrics exposes application-level instruments.
type Metrics struct {
	practicesSubmitted metric.Int64Counter
	xpAwarded          metric.Int64Counter
	badgesAwarded      metric.Int64Counter
	levelUps           metric.Int64Counter
	streakShields      metric.Int64Counter
	rateLimitDenied    metric.Int64Counter
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				if log != nil {
					log.Info("shutting down meter provider")
				}
				return provider.Shutdown(ctx)
			},
		})
	}

	if log != nil {
		log.Info("metrics initialized",
			zap.String("endpoint", cfg.ExporterEndpoint),
			zap.String("protocol", cfg.ExporterProtocol),
		)
	}

	return provider, nil
}

// New configures the domain metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "mindshift"
	}
	meter := provider.Meter(name)

	practicesSubmitted, err := meter.Int64Counter("mindshift_practices_submitted_total")
	if err != nil {
		return nil, err
	}
	xpAwarded, err := meter.Int64Counter("mindshift_xp_awarded_total")
	if err != nil {
		return nil, err
	}
	badgesAwarded, err := meter.Int64Counter("mindshift_badges_awarded_total")
	if err != nil {
		return nil, err
	}
	levelUps, err := meter.Int64Counter("mindshift_level_ups_total")
	if err != nil {
		return nil, err
	}
	streakShields, err := meter.Int64Counter("mindshift_streak_shields_used_total")
	if err != nil {
		return nil, err
	}
	rateLimitDenied, err := meter.Int64Counter("mindshift_rate_limit_denied_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		practicesSubmitted: practicesSubmitted,
		xpAwarded:          xpAwarded,
		badgesAwarded:      badgesAwarded,
		levelUps:           levelUps,
		streakShields:      streakShields,
		rateLimitDenied:    rateLimitDenied,
	}, nil
}

// RecordPractice counts a committed practice event and the XP it awarded.
func (m *Metrics) RecordPractice(ctx context.Context, subscriptionTier, celebration string, xp int64) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("subscription_tier", strings.TrimSpace(subscriptionTier)),
		attribute.String("celebration", strings.TrimSpace(celebration)),
	)
	m.practicesSubmitted.Add(ctx, 1, metric.WithAttributes(attrs...))
	if xp > 0 {
		m.xpAwarded.Add(ctx, xp, metric.WithAttributes(attrs...))
	}
}

// RecordBadgeAwarded increments badge award counts.
func (m *Metrics) RecordBadgeAwarded(ctx context.Context, badgeType, source string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("badge_type", strings.TrimSpace(badgeType)),
		attribute.String("source", strings.TrimSpace(source)),
	)
	m.badgesAwarded.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordLevelUp increments level-up counts by resulting tier.
func (m *Metrics) RecordLevelUp(ctx context.Context, tier string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("tier", strings.TrimSpace(tier)))
	m.levelUps.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordStreakShield increments streak shield usage.
func (m *Metrics) RecordStreakShield(ctx context.Context, subscriptionTier string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("subscription_tier", strings.TrimSpace(subscriptionTier)))
	m.streakShields.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordRateLimitDenied increments rate limit deny counts.
func (m *Metrics) RecordRateLimitDenied(ctx context.Context, endpoint, reason string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("endpoint", strings.TrimSpace(endpoint)),
		attribute.String("reason", strings.TrimSpace(reason)),
	)
	m.rateLimitDenied.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	protocol = strings.ToLower(strings.TrimSpace(protocol))
	switch protocol {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{}
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(context.Background(), opts...)
	case "grpc", "grpc/protobuf", "":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}

var allowedLabelKeys = map[attribute.Key]struct{}{
	"subscription_tier": {},
	"tier":              {},
	"celebration":       {},
	"badge_type":        {},
	"source":            {},
	"endpoint":          {},
	"status_code":       {},
	"reason":            {},
}

// FilterAttributes strips disallowed labels to keep metrics low-cardinality.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedLabelKeys[attr.Key]; !ok {
			continue
		}
		filtered = append(filtered, attr)
	}
	return filtered
}
