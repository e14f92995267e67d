package parser

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
)

// parseFeaturesML reads the single-row features_ml.csv as a header-keyed
// map; a missing file is absent, not an error.
func parseFeaturesML(outputDir string) (map[string]string, error) {
	path := filepath.Join(outputDir, "06_analysis", "features_ml.csv")
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return nil, nil
	}
	header, row := records[0], records[1]
	out := make(map[string]string, len(header))
	for i, name := range header {
		if i < len(row) {
			out[name] = row[i]
		}
	}
	return out, nil
}

// parseMetadata echoes METADATA.json verbatim under the metadata key.
func parseMetadata(outputDir string) (map[string]interface{}, error) {
	path := filepath.Join(outputDir, "METADATA.json")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var out map[string]interface{}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// findReportHTML locates the professional HTML report, returning an empty
// string if absent.
func findReportHTML(outputDir, sampleID string) string {
	pattern := filepath.Join(outputDir, "06_analysis", "reports", sampleID+"_ARG_professional_report.html")
	matches, err := filepath.Glob(pattern)
	if err != nil || len(matches) == 0 {
		return ""
	}
	return matches[0]
}
