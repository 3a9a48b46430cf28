package provider

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"review-game-service/internal/domain"
)

const sampleSnapshot = `
market_overview:
  limit_up_count: 62
  limit_down_count: 4
  up_count: 3100
  market_phase: frenzy
risk_scan:
  focus_sector: property
  sector_limit_down: 6
opportunity_scan:
  lead_sector: new energy
  sector_limit_ups: 21
`

func writeSnapshot(t *testing.T, dir, date, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, date+".yaml"), []byte(content), 0o644); err != nil {
		t.Fatalf("write snapshot: %v", err)
	}
}

func TestFileProviderReadsSnapshot(t *testing.T) {
	dir := t.TempDir()
	writeSnapshot(t, dir, "2025-08-03", sampleSnapshot)

	p := NewFileProvider(dir)
	snapshot, err := p.Snapshot(context.Background(), "2025-08-03")
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if snapshot.Date != "2025-08-03" {
		t.Fatalf("expected date set, got %q", snapshot.Date)
	}
	if snapshot.Overview.LimitUpCount != 62 {
		t.Fatalf("expected 62 limit-ups, got %d", snapshot.Overview.LimitUpCount)
	}
	if snapshot.Overview.MarketPhase != "frenzy" {
		t.Fatalf("expected frenzy, got %q", snapshot.Overview.MarketPhase)
	}
	if snapshot.Opportunity.SectorLimitUps != 21 {
		t.Fatalf("expected 21 sector limit-ups, got %d", snapshot.Opportunity.SectorLimitUps)
	}
}

func TestFileProviderMissingFileIsEmptySnapshot(t *testing.T) {
	p := NewFileProvider(t.TempDir())
	snapshot, err := p.Snapshot(context.Background(), "2025-08-04")
	if err != nil {
		t.Fatalf("expected missing file to be tolerated, got %v", err)
	}
	if snapshot.Date != "2025-08-04" {
		t.Fatalf("expected date carried through, got %q", snapshot.Date)
	}
	if snapshot.Overview.LimitUpCount != 0 {
		t.Fatalf("expected zero snapshot, got %+v", snapshot.Overview)
	}
}

func TestFileProviderMalformedYAML(t *testing.T) {
	dir := t.TempDir()
	writeSnapshot(t, dir, "2025-08-03", "market_overview: [not a map")

	p := NewFileProvider(dir)
	if _, err := p.Snapshot(context.Background(), "2025-08-03"); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoadActual(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "actual.yaml")
	content := `
date: "2025-08-03"
limit_up_count: 58
risk_sector_change_pct: -2.5
market_strength: 31
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	actual, err := LoadActual(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	v, err := actual.Metric(domain.StepMarketOverview)
	if err != nil || v != 58 {
		t.Fatalf("expected limit-up metric 58, got %v (%v)", v, err)
	}
	if _, err := actual.Metric(domain.StepOpportunityScan); err == nil {
		t.Fatal("expected missing metric to error")
	}

	if _, err := LoadActual(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Fatal("expected missing actual file to error")
	}
}

type countingProvider struct {
	calls int64
}

func (p *countingProvider) Snapshot(_ context.Context, date string) (domain.MarketSnapshot, error) {
	atomic.AddInt64(&p.calls, 1)
	return domain.MarketSnapshot{Date: date}, nil
}

func TestCachedCollapsesRepeatedFetches(t *testing.T) {
	inner := &countingProvider{}
	cached := NewCached(inner, 8, time.Minute)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if _, err := cached.Snapshot(ctx, "2025-08-03"); err != nil {
			t.Fatalf("snapshot: %v", err)
		}
	}
	if got := atomic.LoadInt64(&inner.calls); got != 1 {
		t.Fatalf("expected one upstream call, got %d", got)
	}

	if _, err := cached.Snapshot(ctx, "2025-08-04"); err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if got := atomic.LoadInt64(&inner.calls); got != 2 {
		t.Fatalf("expected second date to fetch, got %d", got)
	}
}
