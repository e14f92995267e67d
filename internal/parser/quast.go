package parser

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
)

// parseQuastReport reads the metric\tvalue pairs QUAST writes to
// report.tsv. Missing file returns (nil, nil); present-but-unreadable
// files to the caller, which records it as a parse warning.
func parseQuastReport(outputDir string) (*AssemblyStats, error) {
	path := filepath.Join(outputDir, "02_assembly", "quast", "report.tsv")
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	fields := make(map[string]string)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		parts := strings.SplitN(scanner.Text(), "\t", 2)
		if len(parts) < 2 {
			continue
		}
		fields[parts[0]] = parts[1]
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return &AssemblyStats{
		NumContigs:    parseIntTolerant(fields["# contigs"]),
		TotalLength:   parseIntTolerant(fields["Total length"]),
		LargestContig: parseIntTolerant(fields["Largest contig"]),
		N50:           parseIntTolerant(fields["N50"]),
		L50:           parseIntTolerant(fields["L50"]),
		GCPercent:     parseFloatPtrTolerant(fields["GC (%)"]),
	}, nil
}
