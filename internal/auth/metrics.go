// AngelaMos | 2026
// metrics.go

package auth

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var tracer = otel.Tracer("storefront/auth")

var (
	refreshRotationsTotal metric.Int64Counter
	refreshReuseTotal     metric.Int64Counter
	authFailuresTotal     metric.Int64Counter
)

func init() {
	m := otel.Meter("storefront/auth")

	refreshRotationsTotal, _ = m.Int64Counter("auth_refresh_rotations_total",
		metric.WithDescription("Successful refresh token rotations"))
	refreshReuseTotal, _ = m.Int64Counter("auth_refresh_reuse_detected_total",
		metric.WithDescription("Refresh token reuse detections"))
	authFailuresTotal, _ = m.Int64Counter("auth_failures_total",
		metric.WithDescription("Rejected authentication attempts"))
}

func recordFailure(ctx context.Context, reason string) {
	authFailuresTotal.Add(ctx, 1,
		metric.WithAttributes(attribute.String("reason", reason)))
}
