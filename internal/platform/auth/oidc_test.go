package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/require"
)

const (
	schedulerAudience = "https://bazaar-api.internal"
	googleIssuer      = "https://accounts.google.com"
)

type verificationOutcome struct {
	success bool
	reason  string
}

type outcomeRecorder struct {
	mu       sync.Mutex
	outcomes []verificationOutcome
}

func (r *outcomeRecorder) RecordVerification(_ context.Context, kind string, success bool, reason string, _ time.Duration) {
	if kind != "oidc" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, verificationOutcome{success: success, reason: reason})
}

func (r *outcomeRecorder) latest() verificationOutcome {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.outcomes) == 0 {
		return verificationOutcome{}
	}
	return r.outcomes[len(r.outcomes)-1]
}

type oidcFixture struct {
	validator *OIDCValidator
	recorder  *outcomeRecorder
	keys      *keyServer
	now       time.Time
}

func newOIDCFixture(t *testing.T) *oidcFixture {
	t.Helper()
	now := time.Date(2026, 5, 1, 9, 30, 0, 0, time.UTC)
	previous := jwt.TimeFunc
	jwt.TimeFunc = func() time.Time { return now }
	t.Cleanup(func() { jwt.TimeFunc = previous })

	keys := newKeyServer(t, "scheduler-key")
	recorder := &outcomeRecorder{}
	validator := NewOIDCValidator(
		NewJWKSCache(keys.URL, WithJWKSClock(func() time.Time { return now })),
		WithOIDCMetrics(recorder),
		WithOIDCClock(func() time.Time { return now }),
	)
	return &oidcFixture{validator: validator, recorder: recorder, keys: keys, now: now}
}

func (f *oidcFixture) sign(t *testing.T, edit func(jwt.MapClaims)) string {
	t.Helper()
	claims := jwt.MapClaims{
		"iss":   googleIssuer,
		"aud":   schedulerAudience,
		"sub":   "112233445566",
		"email": "order-sync@bazaar-prod.iam.gserviceaccount.com",
		"iat":   float64(f.now.Unix()),
		"exp":   float64(f.now.Add(30 * time.Minute).Unix()),
	}
	if edit != nil {
		edit(claims)
	}
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = f.keys.kid
	signed, err := token.SignedString(f.keys.key)
	require.NoError(t, err)
	return signed
}

func (f *oidcFixture) serve(audience string, req *http.Request, next http.HandlerFunc) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	f.validator.RequireOIDC(audience, []string{" " + googleIssuer, "", "https://cloud.google.com/iap"})(next).ServeHTTP(rec, req)
	return rec
}

func transitionRequest() *http.Request {
	return httptest.NewRequest(http.MethodPost, "/api/v1/internal/orders/ord_1/status", nil)
}

func TestRequireOIDCAcceptsServiceToken(t *testing.T) {
	f := newOIDCFixture(t)
	req := transitionRequest()
	req.Header.Set("Authorization", "Bearer "+f.sign(t, nil))

	var actor string
	rec := f.serve(schedulerAudience, req, func(w http.ResponseWriter, r *http.Request) {
		identity, ok := ServiceIdentityFromContext(r.Context())
		require.True(t, ok)
		actor = identity.ActorID()
		w.WriteHeader(http.StatusOK)
	})

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "order-sync@bazaar-prod.iam.gserviceaccount.com", actor)
	require.Equal(t, verificationOutcome{success: true, reason: "ok"}, f.recorder.latest())
}

func TestRequireOIDCAcceptsIAPAssertion(t *testing.T) {
	f := newOIDCFixture(t)
	req := transitionRequest()
	req.Header.Set("X-Goog-Iap-Jwt-Assertion", f.sign(t, func(c jwt.MapClaims) {
		c["iss"] = "https://cloud.google.com/iap"
		c["aud"] = []string{"/projects/42/global/backendServices/7"}
		delete(c, "email")
	}))

	var actor string
	rec := f.serve("/projects/42/global/backendServices/7", req, func(w http.ResponseWriter, r *http.Request) {
		identity, _ := ServiceIdentityFromContext(r.Context())
		actor = identity.ActorID()
		w.WriteHeader(http.StatusOK)
	})

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "112233445566", actor)
}

func TestRequireOIDCRejections(t *testing.T) {
	cases := []struct {
		name     string
		audience string
		edit     func(jwt.MapClaims)
		noToken  bool
		status   int
		reason   string
	}{
		{name: "missing token", audience: schedulerAudience, noToken: true, status: http.StatusUnauthorized, reason: "token_missing"},
		{name: "foreign issuer", audience: schedulerAudience, edit: func(c jwt.MapClaims) { c["iss"] = "https://login.example.net" }, status: http.StatusUnauthorized, reason: "issuer_mismatch"},
		{name: "other audience", audience: "https://another-service.internal", status: http.StatusUnauthorized, reason: "audience_mismatch"},
		{name: "expired", audience: schedulerAudience, edit: func(c jwt.MapClaims) { c["exp"] = float64(time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC).Unix()) }, status: http.StatusUnauthorized, reason: "token_invalid"},
		{name: "audience unset", audience: "", status: http.StatusServiceUnavailable, reason: "not_configured"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newOIDCFixture(t)
			req := transitionRequest()
			if !tc.noToken {
				req.Header.Set("Authorization", "Bearer "+f.sign(t, tc.edit))
			}

			rec := f.serve(tc.audience, req, func(http.ResponseWriter, *http.Request) {
				t.Fatal("protected handler reached")
			})

			require.Equal(t, tc.status, rec.Code)
			require.Equal(t, verificationOutcome{reason: tc.reason}, f.recorder.latest())
		})
	}
}

func TestRequireOIDCKeysUnreachable(t *testing.T) {
	f := newOIDCFixture(t)
	token := f.sign(t, nil)
	f.keys.Close()

	req := transitionRequest()
	req.Header.Set("Authorization", "Bearer "+token)
	rec := f.serve(schedulerAudience, req, func(http.ResponseWriter, *http.Request) {
		t.Fatal("protected handler reached")
	})

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.Contains(t, rec.Body.String(), "verification_unavailable")
	require.Equal(t, "jwks_unavailable", f.recorder.latest().reason)
}

func TestAudienceFromClaims(t *testing.T) {
	require.Equal(t, []string{"a"}, audienceFromClaims(jwt.MapClaims{"aud": " a "}))
	require.Equal(t, []string{"a", "b"}, audienceFromClaims(jwt.MapClaims{"aud": []any{"a", 7, "b"}}))
	require.Empty(t, audienceFromClaims(jwt.MapClaims{}))
}
