package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v4"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// MetricsRecorder records verification outcomes.
type MetricsRecorder interface {
	RecordVerification(ctx context.Context, kind string, success bool, reason string, duration time.Duration)
}

type otelVerificationMetrics struct {
	outcomes metric.Int64Counter
	latency  metric.Float64Histogram
}

// NewVerificationMetrics records outcomes as auth.verifications and auth.verification.latency.
func NewVerificationMetrics(meter metric.Meter) (MetricsRecorder, error) {
	outcomes, err := meter.Int64Counter("auth.verifications", metric.WithDescription("Token verifications by outcome"))
	if err != nil {
		return nil, fmt.Errorf("auth: register counter: %w", err)
	}
	latency, err := meter.Float64Histogram("auth.verification.latency", metric.WithUnit("ms"))
	if err != nil {
		return nil, fmt.Errorf("auth: register histogram: %w", err)
	}
	return &otelVerificationMetrics{outcomes: outcomes, latency: latency}, nil
}

func (m *otelVerificationMetrics) RecordVerification(ctx context.Context, kind string, success bool, reason string, duration time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("kind", kind),
		attribute.Bool("success", success),
		attribute.String("reason", reason),
	)
	m.outcomes.Add(ctx, 1, attrs)
	m.latency.Record(ctx, float64(duration)/float64(time.Millisecond), attrs)
}

// OIDCValidator validates Google-signed OIDC and IAP tokens presented by internal callers.
type OIDCValidator struct {
	cache   *JWKSCache
	logger  *zap.Logger
	metrics MetricsRecorder
	now     func() time.Time
}

// OIDCOption customises the validator.
type OIDCOption func(*OIDCValidator)

// NewOIDCValidator constructs an OIDCValidator.
func NewOIDCValidator(cache *JWKSCache, opts ...OIDCOption) *OIDCValidator {
	validator := &OIDCValidator{
		cache:  cache,
		logger: zap.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(validator)
		}
	}
	return validator
}

// WithOIDCLogger overrides the validator logger.
func WithOIDCLogger(logger *zap.Logger) OIDCOption {
	return func(v *OIDCValidator) {
		if logger != nil {
			v.logger = logger
		}
	}
}

// WithOIDCMetrics sets the metrics recorder.
func WithOIDCMetrics(recorder MetricsRecorder) OIDCOption {
	return func(v *OIDCValidator) {
		v.metrics = recorder
	}
}

// WithOIDCClock injects a time source.
func WithOIDCClock(now func() time.Time) OIDCOption {
	return func(v *OIDCValidator) {
		if now != nil {
			v.now = now
		}
	}
}

// oidcFailure is a rejected verification: the metric reason plus the HTTP answer.
type oidcFailure struct {
	reason  string
	status  int
	message string
}

func rejectOIDC(reason, message string) *oidcFailure {
	return &oidcFailure{reason: reason, status: http.StatusUnauthorized, message: message}
}

// RequireOIDC rejects requests lacking a valid token for audience issued by one of issuers.
func (v *OIDCValidator) RequireOIDC(audience string, issuers []string) func(http.Handler) http.Handler {
	audience = strings.TrimSpace(audience)
	var allowed []string
	for _, issuer := range issuers {
		if issuer = strings.TrimSpace(issuer); issuer != "" {
			allowed = append(allowed, issuer)
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			start := v.now()

			identity, failure := v.verify(r, audience, allowed)
			if failure != nil {
				v.record(ctx, false, failure.reason, start)
				code := "invalid_token"
				switch failure.status {
				case http.StatusServiceUnavailable:
					code = "verification_unavailable"
				case http.StatusUnauthorized:
					if failure.reason == "token_missing" {
						code = "unauthenticated"
					}
				}
				respondAuthError(ctx, w, failure.status, code, failure.message)
				return
			}

			v.record(ctx, true, "ok", start)
			next.ServeHTTP(w, r.WithContext(WithServiceIdentity(ctx, identity)))
		})
	}
}

func (v *OIDCValidator) verify(r *http.Request, audience string, issuers []string) (*ServiceIdentity, *oidcFailure) {
	if audience == "" || v.cache == nil {
		return nil, &oidcFailure{reason: "not_configured", status: http.StatusServiceUnavailable, message: "oidc verification not configured"}
	}

	raw, source := extractOIDCToken(r)
	if raw == "" {
		return nil, rejectOIDC("token_missing", "oidc token missing")
	}

	claims := jwt.MapClaims{}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}))
	if _, err := parser.ParseWithClaims(raw, claims, v.cache.Keyfunc(r.Context())); err != nil {
		if errors.Is(err, ErrJWKSFetchFailed) {
			v.logger.Error("auth: jwks unavailable", zap.Error(err))
			return nil, &oidcFailure{reason: "jwks_unavailable", status: http.StatusServiceUnavailable, message: "oidc keys unavailable"}
		}
		v.logger.Warn("auth: oidc token rejected", zap.String("source", source), zap.Error(err))
		return nil, rejectOIDC("token_invalid", "oidc token verification failed")
	}

	issuer := claimAsString(claims, "iss")
	if len(issuers) > 0 && !slices.Contains(issuers, issuer) {
		v.logger.Warn("auth: oidc issuer mismatch", zap.String("issuer", issuer))
		return nil, rejectOIDC("issuer_mismatch", "oidc issuer mismatch")
	}
	if !slices.Contains(audienceFromClaims(claims), audience) {
		v.logger.Warn("auth: oidc audience mismatch", zap.String("expected", audience), zap.String("source", source))
		return nil, rejectOIDC("audience_mismatch", "oidc audience mismatch")
	}

	return &ServiceIdentity{
		Subject:  claimAsString(claims, "sub"),
		Email:    claimAsString(claims, "email"),
		Issuer:   issuer,
		Audience: audience,
	}, nil
}

func (v *OIDCValidator) record(ctx context.Context, success bool, reason string, start time.Time) {
	if v.metrics == nil {
		return
	}
	v.metrics.RecordVerification(ctx, "oidc", success, reason, v.now().Sub(start))
}

func extractOIDCToken(r *http.Request) (token string, source string) {
	if bearer, ok := extractBearerToken(r.Header.Get("Authorization")); ok {
		return bearer, "authorization"
	}
	if assertion := strings.TrimSpace(r.Header.Get("X-Goog-Iap-Jwt-Assertion")); assertion != "" {
		return assertion, "iap"
	}
	return "", ""
}

func audienceFromClaims(claims jwt.MapClaims) []string {
	switch v := claims["aud"].(type) {
	case string:
		return []string{strings.TrimSpace(v)}
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, strings.TrimSpace(s))
			}
		}
		return out
	default:
		return nil
	}
}
