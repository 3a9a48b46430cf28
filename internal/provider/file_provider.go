// Package provider supplies date-keyed market snapshots to the
// question generator.
package provider

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"review-game-service/internal/domain"
)

// FileProvider reads snapshots from a directory of per-date YAML
// files, one file per trading day named <date>.yaml. A missing file is
// not an error: issuance must stay available on days the feed lags, so
// the provider returns an empty snapshot and the generator's defaults
// take over.
type FileProvider struct {
	dir string
}

func NewFileProvider(dir string) *FileProvider {
	return &FileProvider{dir: dir}
}

func (p *FileProvider) Snapshot(_ context.Context, date string) (domain.MarketSnapshot, error) {
	path := filepath.Join(p.dir, date+".yaml")
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return domain.MarketSnapshot{Date: date}, nil
	}
	if err != nil {
		return domain.MarketSnapshot{}, fmt.Errorf("read snapshot %s: %w", path, err)
	}

	var snapshot domain.MarketSnapshot
	if err := yaml.Unmarshal(raw, &snapshot); err != nil {
		return domain.MarketSnapshot{}, fmt.Errorf("parse snapshot %s: %w", path, err)
	}
	snapshot.Date = date
	return snapshot, nil
}

// LoadActual parses a next-day outcome file. Unlike Snapshot, a
// missing or malformed file is always an error; verification never
// runs on guessed outcomes.
func LoadActual(path string) (domain.ActualSnapshot, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return domain.ActualSnapshot{}, fmt.Errorf("read actual snapshot %s: %w", path, err)
	}
	var actual domain.ActualSnapshot
	if err := yaml.Unmarshal(raw, &actual); err != nil {
		return domain.ActualSnapshot{}, fmt.Errorf("parse actual snapshot %s: %w", path, err)
	}
	return actual, nil
}
