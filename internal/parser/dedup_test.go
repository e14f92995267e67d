package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyPriorityOrdering(t *testing.T) {
	assert.Equal(t, PriorityCritical, classifyPriority("Carbapenem resistance"))
	assert.Equal(t, PriorityCritical, classifyPriority("MRSA"))
	assert.Equal(t, PriorityHigh, classifyPriority("beta-lactam"))
	assert.Equal(t, PriorityMedium, classifyPriority("tetracycline"))
	assert.Equal(t, PriorityLow, classifyPriority("something else entirely"))
	assert.Equal(t, PriorityLow, classifyPriority(""))
}

func TestClassifyPriorityIsCaseInsensitive(t *testing.T) {
	assert.Equal(t, PriorityCritical, classifyPriority("VANCOMYCIN"))
}

func TestNormalizeGeneNameStripsAlleleSuffix(t *testing.T) {
	assert.Equal(t, "blatem", normalizeGeneName("blaTEM_1"))
	assert.Equal(t, "teta", normalizeGeneName("tetA"))
}

func TestDeduplicateGenesMergesAMRFinderPlusAndResFinderByBaseName(t *testing.T) {
	byTool := map[string]DetectionResults{
		"amrfinderplus": {Tool: "amrfinderplus", Genes: []Gene{{Gene: "blaTEM-1", Identity: floatPtr(99.0), Resistance: "beta-lactam"}}},
		"resfinder":     {Tool: "resfinder", Genes: []Gene{{Gene: "blaTEM_1", Identity: floatPtr(99.9), Resistance: "beta-lactam"}}},
	}

	merged, stats := deduplicateGenes(byTool)
	assert.Len(t, merged, 1)
	assert.Equal(t, 2, stats.TotalRaw)
	assert.Equal(t, 1, stats.TotalDeduplicated)
	assert.Equal(t, 1, stats.DuplicatesRemoved)
	assert.ElementsMatch(t, []string{"AMRFinderPlus", "ResFinder"}, merged[0].Sources)
}

func TestDedupeWithinToolCollapsesRepeatedGene(t *testing.T) {
	genes := []Gene{
		{Gene: "blaTEM-1", Sequence: "contig1"},
		{Gene: "blaTEM-1", Sequence: "contig2"},
		{Gene: "mecA", Sequence: "contig1"},
	}
	out := dedupeWithinTool("resfinder", genes)
	assert.Len(t, out, 2)
	assert.Equal(t, "blaTEM-1", out[0].Gene)
	assert.Equal(t, "mecA", out[1].Gene)
}

func TestDedupeWithinToolIsScopedPerTool(t *testing.T) {
	genes := []Gene{{Gene: "blaTEM-1"}}
	a := dedupeWithinTool("resfinder", genes)
	b := dedupeWithinTool("card", genes)
	assert.Len(t, a, 1)
	assert.Len(t, b, 1)
}

func TestDeduplicateGenesKeepsDistinctGenesSeparate(t *testing.T) {
	byTool := map[string]DetectionResults{
		"card": {Tool: "card", Genes: []Gene{{Gene: "mecA", Resistance: "MRSA"}}},
		"vfdb": {Tool: "vfdb", Genes: []Gene{{Gene: "hlyA", Resistance: "Virulence"}}},
	}

	merged, stats := deduplicateGenes(byTool)
	assert.Len(t, merged, 2)
	assert.Equal(t, 0, stats.DuplicatesRemoved)
}
