package report

import (
	"fmt"
)

// ArtifactWriter is the part of the storage manager the report needs
type ArtifactWriter interface {
	SaveJSON(name string, v interface{}) error
	SaveText(name, s string) error
	Path(name string) string
}

// Write saves the JSON record and the text report, returning their paths
func Write(w ArtifactWriter, rec Record, text string) (jsonPath, textPath string, err error) {
	if err := w.SaveJSON(ResultsFile, rec); err != nil {
		return "", "", fmt.Errorf("failed to save results: %w", err)
	}
	if err := w.SaveText(ReportFile, text); err != nil {
		return "", "", fmt.Errorf("failed to save report: %w", err)
	}
	return w.Path(ResultsFile), w.Path(ReportFile), nil
}
