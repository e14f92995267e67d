package parser

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

// Parse walks a completed job's output_dir and assembles a Results
// record. A malformed present file is recorded as a parse_warnings entry
// and skipped rather than failing the whole operation; a missing file is
// silently treated as absent, per the tolerant-by-default contract.
func Parse(outputDir, sampleID string) (*Results, error) {
	results := &Results{
		OutputDirectory: outputDir,
		ArgDetection:    make(map[string]DetectionResults),
	}

	if metadata, err := parseMetadata(outputDir); err != nil {
		results.ParseWarnings = append(results.ParseWarnings, warnf("METADATA.json", err))
	} else {
		results.Metadata = metadata
	}

	if stats, err := parseQuastReport(outputDir); err != nil {
		results.ParseWarnings = append(results.ParseWarnings, warnf("02_assembly/quast/report.tsv", err))
	} else {
		results.AssemblyStats = stats
	}

	for _, spec := range abricateTools {
		path := spec.relPath(sampleID)
		det, err := loadTool(filepath.Join(outputDir, path), spec)
		if err != nil {
			results.ParseWarnings = append(results.ParseWarnings, warnf(path, err))
			continue
		}
		if det != nil {
			results.ArgDetection[spec.key] = *det
		}
	}

	amrPath := amrfinderplusTool.relPath(sampleID)
	if det, err := loadTool(filepath.Join(outputDir, amrPath), amrfinderplusTool); err != nil {
		results.ParseWarnings = append(results.ParseWarnings, warnf(amrPath, err))
	} else if det != nil {
		results.ArgDetection[amrfinderplusTool.key] = *det
	}

	if det, err := parseRGI(outputDir, sampleID); err != nil {
		results.ParseWarnings = append(results.ParseWarnings, warnf("04_arg_detection/rgi", err))
	} else if det != nil {
		results.ArgDetection["rgi"] = *det
	}

	for key, det := range results.ArgDetection {
		priced := make([]Gene, len(det.Genes))
		for i, g := range det.Genes {
			g.Priority = classifyPriority(firstNonEmpty(g.Resistance, g.Subclass))
			priced[i] = g
		}
		det.Genes = priced
		results.ArgDetection[key] = det
	}

	dedup, dedupStats := deduplicateGenes(results.ArgDetection)
	results.DeduplicatedGenes = dedup
	results.DeduplicationStats = dedupStats

	results.TotalArgGenes = countAllGenes(results.ArgDetection)
	results.TotalUniqueGenes = len(dedup)
	results.UniqueResistanceTypes = uniqueResistanceTypes(results.ArgDetection)

	if taxonomy, err := parseTaxonomy(outputDir, sampleID); err != nil {
		results.ParseWarnings = append(results.ParseWarnings, warnf("taxonomy", err))
	} else {
		results.Taxonomy = taxonomy
	}

	if mlst, err := parseMLST(outputDir, sampleID); err != nil {
		results.ParseWarnings = append(results.ParseWarnings, warnf("mlst", err))
	} else {
		results.MLST = mlst
	}

	if features, err := parseFeaturesML(outputDir); err != nil {
		results.ParseWarnings = append(results.ParseWarnings, warnf("06_analysis/features_ml.csv", err))
	} else {
		results.FeaturesML = features
	}

	results.ReportHTMLPath = findReportHTML(outputDir, sampleID)

	return results, nil
}

func warnf(what string, err error) string {
	return fmt.Sprintf("%s: %v", what, err)
}

// countAllGenes sums total_arg_genes across tools. Each tool's own Genes
// slice is already deduplicated by (gene, tool) in loadTool/parseRGI before
// it reaches here, so this is a plain union count, per spec.md §4.F.
func countAllGenes(byTool map[string]DetectionResults) int {
	total := 0
	for _, det := range byTool {
		total += len(det.Genes)
	}
	return total
}

func uniqueResistanceTypes(byTool map[string]DetectionResults) []string {
	seen := make(map[string]struct{})
	for _, det := range byTool {
		for _, g := range det.Genes {
			if g.Resistance == "" {
				continue
			}
			for _, r := range strings.Split(g.Resistance, ";") {
				r = strings.TrimSpace(r)
				if r != "" {
					seen[r] = struct{}{}
				}
			}
		}
	}
	out := make([]string, 0, len(seen))
	for r := range seen {
		out = append(out, r)
	}
	sort.Strings(out)
	return out
}
