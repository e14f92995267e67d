package parser

import "strings"

const (
	PriorityCritical = "CRITICAL"
	PriorityHigh     = "HIGH"
	PriorityMedium   = "MEDIUM"
	PriorityLow      = "LOW"
)

// priorityKeywords is checked in order; the first matching tier wins.
var priorityKeywords = []struct {
	tier     string
	keywords []string
}{
	{PriorityCritical, []string{"carbapenem", "colistin", "vancomycin", "mrsa", "linezolid"}},
	{PriorityHigh, []string{"beta-lactam", "fluoroquinolone", "aminoglycoside", "esbl"}},
	{PriorityMedium, []string{"tetracycline", "sulfonamide", "trimethoprim", "chloramphenicol"}},
}

// classifyPriority derives a gene's priority tier from its resistance or
// subclass text via case-insensitive substring match.
func classifyPriority(resistance string) string {
	lower := strings.ToLower(resistance)
	for _, tier := range priorityKeywords {
		for _, kw := range tier.keywords {
			if strings.Contains(lower, kw) {
				return tier.tier
			}
		}
	}
	return PriorityLow
}

// normalizeGeneName cuts the name at its first "_", strips a trailing "-N"
// allele suffix, and lowercases, the key used to match the same gene
// reported by different tools (e.g. "blaTEM-1" and "blaTEM_1").
func normalizeGeneName(name string) string {
	if idx := strings.IndexByte(name, '_'); idx >= 0 {
		name = name[:idx]
	}
	if idx := strings.LastIndexByte(name, '-'); idx >= 0 && isDigits(name[idx+1:]) {
		name = name[:idx]
	}
	return strings.ToLower(name)
}

// geneMatches reports whether name's base (normalizeGeneName) appears as
// a substring of any existing gene's name, the looser containment check
// used once AMRFinderPlus/ResFinder have seeded the merged set.
func geneMatches(name string, existing []DeduplicatedGene) bool {
	base := normalizeGeneName(name)
	for _, g := range existing {
		if strings.Contains(strings.ToLower(g.Gene.Gene), base) {
			return true
		}
	}
	return false
}

// dedupeWithinTool collapses a single tool's own gene rows to one per
// (gene, tool) key, the unit spec.md §4.F's aggregation rule counts
// toward total_arg_genes: "union of all per-tool gene lists, deduplicated
// by (gene, tool)". A tool that reports the same gene twice (e.g. hits on
// two contigs) must still contribute only one row.
func dedupeWithinTool(tool string, genes []Gene) []Gene {
	seen := make(map[string]bool, len(genes))
	out := make([]Gene, 0, len(genes))
	for _, g := range genes {
		key := tool + "\x00" + g.Gene
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, g)
	}
	return out
}

// deduplicateGenes implements the AMRFinderPlus-first merge: AMRFinderPlus
// seeds the set, ResFinder merges into matching AMRFinderPlus entries or is
// added, then CARD/VFDB/NCBI each add only genes not already present.
func deduplicateGenes(byTool map[string]DetectionResults) ([]DeduplicatedGene, *DeduplicationStats) {
	stats := &DeduplicationStats{
		ByType: map[string]int{"AMR": 0, "VIRULENCE": 0, "STRESS": 0, "UNKNOWN": 0},
	}

	var merged []DeduplicatedGene

	if amr, ok := byTool["amrfinderplus"]; ok {
		for _, g := range amr.Genes {
			g.Priority = classifyPriority(firstNonEmpty(g.Resistance, g.Subclass))
			elementType := g.ElementType
			if elementType == "" {
				elementType = "AMR"
			}
			g.ElementType = elementType
			merged = append(merged, DeduplicatedGene{Gene: g, Source: "AMRFinderPlus", Sources: []string{"AMRFinderPlus"}})
		}
		stats.TotalRaw += len(amr.Genes)
	}

	if rf, ok := byTool["resfinder"]; ok {
		for _, g := range rf.Genes {
			base := normalizeGeneName(g.Gene)
			matchedIdx := -1
			for i := range merged {
				if normalizeGeneName(merged[i].Gene.Gene) == base {
					matchedIdx = i
					break
				}
			}
			if matchedIdx >= 0 {
				if !containsStr(merged[matchedIdx].Sources, "ResFinder") {
					merged[matchedIdx].Sources = append(merged[matchedIdx].Sources, "ResFinder")
				}
				if identityValue(g) > identityValue(merged[matchedIdx].Gene) {
					merged[matchedIdx].Gene.Identity = g.Identity
					merged[matchedIdx].Gene.Coverage = g.Coverage
				}
				stats.DuplicatesRemoved++
			} else {
				g.ElementType = "AMR"
				g.Priority = classifyPriority(g.Resistance)
				merged = append(merged, DeduplicatedGene{Gene: g, Source: "ResFinder", Sources: []string{"ResFinder"}})
			}
		}
		stats.TotalRaw += len(rf.Genes)
	}

	addUniqueOnly(byTool, "card", "CARD", "AMR", &merged, stats)
	addUniqueOnly(byTool, "vfdb", "VFDB", "VIRULENCE", &merged, stats)
	addUniqueOnly(byTool, "ncbi", "NCBI", "AMR", &merged, stats)

	stats.TotalDeduplicated = len(merged)
	for _, g := range merged {
		elementType := g.Gene.ElementType
		if elementType == "" {
			elementType = "AMR"
		}
		if _, ok := stats.ByType[elementType]; ok {
			stats.ByType[elementType]++
		} else {
			stats.ByType["UNKNOWN"]++
		}
	}

	return merged, stats
}

// addUniqueOnly appends genes from toolKey that don't substring-match an
// existing merged gene, else attaches toolKey as an extra source.
func addUniqueOnly(byTool map[string]DetectionResults, toolKey, sourceName, elementType string, merged *[]DeduplicatedGene, stats *DeduplicationStats) {
	results, ok := byTool[toolKey]
	if !ok {
		return
	}
	for _, g := range results.Genes {
		if geneMatches(g.Gene, *merged) {
			base := normalizeGeneName(g.Gene)
			for i := range *merged {
				if strings.Contains(strings.ToLower((*merged)[i].Gene.Gene), base) {
					if !containsStr((*merged)[i].Sources, sourceName) {
						(*merged)[i].Sources = append((*merged)[i].Sources, sourceName)
					}
					break
				}
			}
			stats.DuplicatesRemoved++
		} else {
			g.ElementType = elementType
			g.Priority = classifyPriority(g.Resistance)
			*merged = append(*merged, DeduplicatedGene{Gene: g, Source: sourceName, Sources: []string{sourceName}})
		}
	}
	stats.TotalRaw += len(results.Genes)
}

func containsStr(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// identityValue treats a nil Identity (parse failure, per spec.md §4.F's
// null-on-failure rule) as lower than any parsed value.
func identityValue(g Gene) float64 {
	if g.Identity == nil {
		return 0
	}
	return *g.Identity
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
