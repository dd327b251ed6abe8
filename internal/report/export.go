package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/entraguard/entraguard/internal/discovery"
)

// Export file name prefixes. Files are stamped <prefix>-<YYYYMMDD-HHmmss>.
const (
	snapshotPrefix = "snapshot"
	reportPrefix   = "report"

	timestampLayout = "20060102-150405"
)

// WriteFiles writes the snapshot data export and the rendered report into
// dir, returning both paths. The snapshot export preserves the full policy
// condition trees and round-trips back into a TenantSnapshot.
func WriteFiles(dir string, snapshot *discovery.TenantSnapshot, doc *Document, at time.Time) (snapshotPath, reportPath string, err error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", "", fmt.Errorf("creating output directory %s: %w", dir, err)
	}
	stamp := at.UTC().Format(timestampLayout)

	snapshotPath = filepath.Join(dir, fmt.Sprintf("%s-%s.json", snapshotPrefix, stamp))
	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return "", "", fmt.Errorf("encoding snapshot: %w", err)
	}
	if err := os.WriteFile(snapshotPath, data, 0o600); err != nil {
		return "", "", fmt.Errorf("writing snapshot export: %w", err)
	}

	reportPath = filepath.Join(dir, fmt.Sprintf("%s-%s.md", reportPrefix, stamp))
	if err := os.WriteFile(reportPath, []byte(RenderMarkdown(doc)), 0o600); err != nil {
		return "", "", fmt.Errorf("writing report: %w", err)
	}
	return snapshotPath, reportPath, nil
}

// ParseSnapshot decodes a snapshot data export back into a TenantSnapshot.
func ParseSnapshot(data []byte) (*discovery.TenantSnapshot, error) {
	var snapshot discovery.TenantSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("parsing snapshot export: %w", err)
	}
	return &snapshot, nil
}
