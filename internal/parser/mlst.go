package parser

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// mlstSearchPaths mirrors original_source's habit of checking several
// plausible locations for the MLST table, since upstream pipeline
// versions have moved it between stage directories over time.
func mlstSearchPaths(outputDir, sampleID string) []string {
	name := sampleID + "_mlst.tsv"
	return []string{
		filepath.Join(outputDir, "03_annotation", "mlst", name),
		filepath.Join(outputDir, "04_arg_detection", "mlst", name),
		filepath.Join(outputDir, "05_taxonomy", "mlst", name),
	}
}

var mlstAlleleRe = regexp.MustCompile(`^(?:Pas_)?(\w+)\((\d+)\)$`)

// parseMLST reads the first data line of an MLST table:
// FILE\tSCHEME\tST\tallele1\tallele2\t...
// A missing or dash/empty sequence type means no usable call; that is
// reported as absent, not as a warning.
func parseMLST(outputDir, sampleID string) (*MLST, error) {
	var path string
	for _, candidate := range mlstSearchPaths(outputDir, sampleID) {
		if _, err := os.Stat(candidate); err == nil {
			path = candidate
			break
		}
	}
	if path == "" {
		return nil, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var dataLine string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		dataLine = line
		break
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if dataLine == "" {
		return nil, nil
	}

	parts := strings.Split(dataLine, "\t")
	if len(parts) < 3 {
		return nil, nil
	}

	sequenceType := parts[2]
	if sequenceType == "-" || sequenceType == "" {
		return nil, nil
	}

	m := &MLST{
		Scheme:       parts[1],
		SequenceType: sequenceType,
		Source:       "MLST",
		Alleles:      make(map[string]string),
	}

	var genes, alleleValues []string
	for i := 3; i < len(parts); i++ {
		allele := strings.TrimSpace(parts[i])
		if allele == "" || allele == "-" {
			continue
		}
		if match := mlstAlleleRe.FindStringSubmatch(allele); match != nil {
			geneName, alleleNum := match[1], match[2]
			m.Alleles[geneName] = alleleNum
			genes = append(genes, geneName)
			alleleValues = append(alleleValues, alleleNum)
		} else if isDigits(allele) {
			m.Alleles[fmt.Sprintf("locus_%d", i-2)] = allele
			alleleValues = append(alleleValues, allele)
		}
	}
	if len(genes) > 0 {
		m.Genes = genes
		m.Profile = strings.Join(alleleValues, "-")
	}

	return m, nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
