package parser

import (
	"bufio"
	"encoding/csv"
	"os"
	"strconv"
	"strings"
)

// junkLinePrefixes are tool-banner lines that precede the real header in
// some abricate-family outputs; they are skipped rather than treated as
// data, matching original_source's line-prefix filter.
var junkLinePrefixes = []string{"Using ", "Processing:", "Found ", "Tip:", "Done."}

// readTSVTable reads a tab-delimited file where the header may be prefixed
// with "#FILE" (stripped, kept as header) or absent entirely from a
// commented block. Returns header-name-keyed rows; a missing file returns
// the os.Open error, which callers check with os.IsNotExist.
func readTSVTable(path string) ([]map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var header []string
	var dataLines []string

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()

		if strings.HasPrefix(line, "#FILE") {
			header = strings.Split(strings.TrimPrefix(line, "#"), "\t")
			continue
		}
		if strings.HasPrefix(line, "#") {
			continue
		}
		if hasAnyPrefix(line, junkLinePrefixes) {
			continue
		}
		if strings.Count(line, "\t") < 1 {
			continue
		}
		if header == nil {
			header = strings.Split(line, "\t")
			continue
		}
		dataLines = append(dataLines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if header == nil {
		return nil, nil
	}

	rows := make([]map[string]string, 0, len(dataLines))
	for _, line := range dataLines {
		fields := strings.Split(line, "\t")
		row := make(map[string]string, len(header))
		for i, name := range header {
			if i < len(fields) {
				row[name] = fields[i]
			} else {
				row[name] = ""
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

// readTSVTableStrict reads a well-formed, never-commented TSV (used for
// AMRFinderPlus, which does not emit the abricate-style banner lines) using
// encoding/csv for quoting correctness.
func readTSVTableStrict(path string) ([]map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comma = '\t'
	r.LazyQuotes = true
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil || len(records) == 0 {
		return nil, err
	}
	header := records[0]
	rows := make([]map[string]string, 0, len(records)-1)
	for _, rec := range records[1:] {
		row := make(map[string]string, len(header))
		for i, name := range header {
			if i < len(rec) {
				row[name] = rec[i]
			} else {
				row[name] = ""
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func parseIntTolerant(s string) *int {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil
	}
	return &n
}

func parseFloatPtrTolerant(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &f
}

func floatPtr(f float64) *float64 { return &f }

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
