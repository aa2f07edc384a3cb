package services

import (
	"context"
	"errors"
	"testing"
	"time"

	domain "github.com/bazaar-mobile/api/internal/domain"
)

type stubHealthRepository struct {
	report domain.ReadinessReport
	err    error
	calls  int
}

func (s *stubHealthRepository) Collect(ctx context.Context) (domain.ReadinessReport, error) {
	s.calls++
	return s.report, s.err
}

func TestSystemServiceReadinessEnrichesMetadata(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 5, 0, 0, time.UTC)
	repo := &stubHealthRepository{
		report: domain.ReadinessReport{
			Probes: map[string]domain.ProbeResult{
				"firestore": {Status: domain.ProbeStatusOK},
			},
		},
	}

	svc, err := NewSystemService(SystemServiceDeps{
		Health: repo,
		Clock:  func() time.Time { return now },
		Build:  BuildInfo{Version: "1.2.3", Environment: "prod"},
	})
	if err != nil {
		t.Fatalf("NewSystemService: %v", err)
	}

	report, err := svc.Readiness(context.Background())
	if err != nil {
		t.Fatalf("Readiness: %v", err)
	}
	if report.Version != "1.2.3" || report.Environment != "prod" {
		t.Fatalf("expected build metadata, got %+v", report)
	}
	if !report.GeneratedAt.Equal(now) {
		t.Fatalf("expected generatedAt %s, got %s", now, report.GeneratedAt)
	}
	if report.Status != domain.ProbeStatusOK {
		t.Fatalf("expected ok status, got %s", report.Status)
	}
	if repo.calls != 1 {
		t.Fatalf("expected one collect call, got %d", repo.calls)
	}
}

func TestSystemServiceReadinessPropagatesError(t *testing.T) {
	repo := &stubHealthRepository{err: errors.New("unavailable")}
	svc, err := NewSystemService(SystemServiceDeps{Health: repo})
	if err != nil {
		t.Fatalf("NewSystemService: %v", err)
	}
	if _, err := svc.Readiness(context.Background()); err == nil {
		t.Fatalf("expected error")
	}
}

func TestNewSystemServiceRequiresHealthRepository(t *testing.T) {
	if _, err := NewSystemService(SystemServiceDeps{}); err == nil {
		t.Fatalf("expected error when health repository is missing")
	}
}
