// Seeds sample reports and converts reports to and from YAML.

package storage

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/maruel/reportdb/internal/models"
	"gopkg.in/yaml.v3"
)

//go:embed samples.yaml
var samplesYAML []byte

// SeedSamples saves the built-in sample reports into an empty store. It
// returns the number of reports created.
func SeedSamples(ctx context.Context, reports *ReportService) (int, error) {
	if reports.Len() != 0 {
		return 0, nil
	}
	docs, err := DecodeReportsYAML(samplesYAML)
	if err != nil {
		return 0, fmt.Errorf("failed to decode samples: %w", err)
	}
	for _, r := range docs {
		saved, err := reports.Save(ctx, r)
		if err != nil {
			return 0, err
		}
		slog.InfoContext(ctx, "seeded sample report", "slug", saved.Slug)
	}
	return len(docs), nil
}

// DecodeReportsYAML parses a YAML sequence of report documents, or a single
// document. Element content is free-form, as in JSON.
func DecodeReportsYAML(data []byte) ([]*models.Report, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	if m, ok := raw.(map[string]any); ok {
		raw = []any{m}
	}
	// The YAML tree only holds JSON-compatible values once keys are strings.
	b, err := json.Marshal(raw)
	if err != nil {
		return nil, err
	}
	var docs []*models.Report
	if err := json.Unmarshal(b, &docs); err != nil {
		return nil, err
	}
	for i, r := range docs {
		if r == nil {
			return nil, fmt.Errorf("document %d is empty", i)
		}
	}
	return docs, nil
}

// EncodeReportYAML returns the YAML form of a report, with the same keys as
// its JSON form.
func EncodeReportYAML(r *models.Report) ([]byte, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	var tree yaml.Node
	if err := yaml.Unmarshal(b, &tree); err != nil {
		return nil, err
	}
	// JSON is valid YAML; re-encode in block style.
	setBlockStyle(&tree)
	return yaml.Marshal(&tree)
}

func setBlockStyle(n *yaml.Node) {
	n.Style &^= yaml.FlowStyle
	for _, c := range n.Content {
		setBlockStyle(c)
	}
}
