package parser

import (
	"bufio"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

func taxonomySearchPaths(outputDir, sampleID string) []string {
	name := sampleID + "_kraken2.report"
	return []string{
		filepath.Join(outputDir, "01_qc", "kraken2", name),
		filepath.Join(outputDir, "05_taxonomy", "kraken2", name),
		filepath.Join(outputDir, "05_taxonomy", name),
	}
}

// parseTaxonomy reads a Kraken2 report (%reads, #reads_clade,
// #reads_direct, rank, taxid, name) and keeps the highest-percentage
// species (rank "S") and genus (rank "G") rows.
func parseTaxonomy(outputDir, sampleID string) (*Taxonomy, error) {
	var path string
	for _, candidate := range taxonomySearchPaths(outputDir, sampleID) {
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

	var species, genus string
	var speciesPct, genusPct float64
	haveSpecies, haveGenus := false, false

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		parts := strings.Split(strings.TrimSpace(scanner.Text()), "\t")
		if len(parts) < 6 {
			continue
		}
		percent, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
		if err != nil {
			continue
		}
		rank := strings.TrimSpace(parts[3])
		name := strings.TrimSpace(parts[5])

		switch rank {
		case "S":
			if !haveSpecies || percent > speciesPct {
				species, speciesPct, haveSpecies = name, percent, true
			}
		case "G":
			if !haveGenus || percent > genusPct {
				genus, genusPct, haveGenus = name, percent, true
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if !haveSpecies {
		return nil, nil
	}

	t := &Taxonomy{Species: species, Confidence: speciesPct, Source: "Kraken2"}
	if haveGenus {
		t.Genus = genus
	}
	return t, nil
}
