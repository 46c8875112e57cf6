package middleware

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	apierrors "github.com/jonxmitchell/ark-asa-shop-config-generator/internal/errors"
	"github.com/jonxmitchell/ark-asa-shop-config-generator/internal/infrastructure"
)

// LicenseState reports whether the process is licensed
type LicenseState interface {
	Licensed() bool
}

// LicenseGate rejects requests with 403 LICENSE_REQUIRED until the session
// is licensed. Mount it only on routes that need a license.
type LicenseGate struct {
	state   LicenseState
	logger  *slog.Logger
	blocked metric.Int64Counter
}

// NewLicenseGate creates the gate. meter may be nil.
func NewLicenseGate(state LicenseState, meter metric.Meter, logger *slog.Logger) *LicenseGate {
	g := &LicenseGate{
		state:  state,
		logger: logger.With(slog.String("component", "license_gate")),
	}
	if meter != nil {
		if c, err := meter.Int64Counter("license.gate.blocked",
			metric.WithDescription("Requests rejected because no valid license is active")); err == nil {
			g.blocked = c
		}
	}
	return g
}

// Handler returns the middleware handler function
func (g *LicenseGate) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if g.state.Licensed() {
			next.ServeHTTP(w, r)
			return
		}

		ctx := r.Context()
		g.logger.InfoContext(ctx, "request blocked, license required",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
		)
		if g.blocked != nil {
			g.blocked.Add(ctx, 1, metric.WithAttributes(attribute.String("route", gatedRoute(r))))
		}

		problem := apierrors.NewProblemDetails(
			http.StatusForbidden,
			apierrors.TypeLicenseGated,
			"License Required",
			apierrors.ErrLicenseRequired.Message,
			r.URL.Path,
		).
			WithExtension("error_code", apierrors.ErrLicenseRequired.ErrorCode).
			WithExtension("trace_id", infrastructure.TraceIDFromContext(ctx))
		apierrors.WriteProblem(w, problem)
	})
}

// gatedRoute is the chi pattern matched so far. The gate runs before the
// mounted subrouter resolves, so ids and unknown tails stay behind the
// wildcard and the metric label set is bounded.
func gatedRoute(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}
