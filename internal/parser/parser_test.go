package parser

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// TestParseHappyPath mirrors spec scenario S1: a resfinder table with two
// data rows under an otherwise-empty run directory yields total_arg_genes=2.
func TestParseHappyPath(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "04_arg_detection", "resfinder", "SRR28083254_resfinder.tsv"),
		"#FILE\tSEQUENCE\tSTART\tEND\tGENE\t%COVERAGE\t%IDENTITY\tDATABASE\tACCESSION\tPRODUCT\tRESISTANCE\n"+
			"SRR28083254_resfinder.tsv\tcontig1\t10\t100\tblaTEM-1\t100.0\t99.5\tresfinder\tAB123\tbeta-lactamase\tbeta-lactam\n"+
			"SRR28083254_resfinder.tsv\tcontig2\t200\t400\ttetA\t98.0\t95.0\tresfinder\tAB456\ttet efflux\ttetracycline\n")

	results, err := Parse(dir, "SRR28083254")
	require.NoError(t, err)
	assert.Equal(t, 2, results.TotalArgGenes)
	require.Contains(t, results.ArgDetection, "resfinder")
	assert.Equal(t, 2, results.ArgDetection["resfinder"].NumGenes)
	assert.Empty(t, results.ParseWarnings)
}

// TestParseDedupesRepeatedGeneWithinSameTool covers spec.md §4.F's
// "deduplicated by (gene, tool)" rule: the same gene hit on two contigs by
// one tool must contribute only one row to total_arg_genes.
func TestParseDedupesRepeatedGeneWithinSameTool(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "04_arg_detection", "resfinder", "SRR1_resfinder.tsv"),
		"#FILE\tSEQUENCE\tSTART\tEND\tGENE\t%COVERAGE\t%IDENTITY\tDATABASE\tACCESSION\tPRODUCT\tRESISTANCE\n"+
			"x\tcontig1\t10\t100\tblaTEM-1\t100.0\t99.5\tresfinder\tAB123\tbeta-lactamase\tbeta-lactam\n"+
			"x\tcontig2\t10\t100\tblaTEM-1\t100.0\t97.0\tresfinder\tAB123\tbeta-lactamase\tbeta-lactam\n")

	results, err := Parse(dir, "SRR1")
	require.NoError(t, err)
	assert.Equal(t, 1, results.TotalArgGenes)
	require.Contains(t, results.ArgDetection, "resfinder")
	assert.Equal(t, 1, results.ArgDetection["resfinder"].NumGenes)
}

func TestParseToleratesMissingFiles(t *testing.T) {
	dir := t.TempDir()
	results, err := Parse(dir, "SRR1")
	require.NoError(t, err)
	assert.Equal(t, 0, results.TotalArgGenes)
	assert.Empty(t, results.UniqueResistanceTypes)
	assert.Nil(t, results.AssemblyStats)
}

func TestParseIsDeterministic(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "04_arg_detection", "card", "SRR1_card.tsv"),
		"#FILE\tSEQUENCE\tSTART\tEND\tGENE\t%COVERAGE\t%IDENTITY\tDATABASE\tACCESSION\tPRODUCT\tRESISTANCE\n"+
			"x\tc1\t1\t10\tmecA\t100\t100\tCARD\tAC1\tmethicillin resistance\tMRSA\n")

	r1, err := Parse(dir, "SRR1")
	require.NoError(t, err)
	r2, err := Parse(dir, "SRR1")
	require.NoError(t, err)

	assert.Equal(t, r1.TotalArgGenes, r2.TotalArgGenes)
	assert.Equal(t, r1.UniqueResistanceTypes, r2.UniqueResistanceTypes)
	assert.Equal(t, r1.ArgDetection["card"].Genes, r2.ArgDetection["card"].Genes)
}

func TestParsePriorityClassification(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "04_arg_detection", "card", "SRR1_card.tsv"),
		"#FILE\tSEQUENCE\tSTART\tEND\tGENE\t%COVERAGE\t%IDENTITY\tDATABASE\tACCESSION\tPRODUCT\tRESISTANCE\n"+
			"x\tc1\t1\t10\tmecA\t100\t100\tCARD\tAC1\tmethicillin resistance\tMRSA\n")

	results, err := Parse(dir, "SRR1")
	require.NoError(t, err)
	require.Len(t, results.ArgDetection["card"].Genes, 1)
	assert.Equal(t, PriorityCritical, results.ArgDetection["card"].Genes[0].Priority)
}

func TestParseQuastAssemblyStats(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "02_assembly", "quast", "report.tsv"),
		"Assembly\tsample\n# contigs\t42\nTotal length\t5000000\nN50\t123456\nGC (%)\t51.2\n")

	results, err := Parse(dir, "SRR1")
	require.NoError(t, err)
	require.NotNil(t, results.AssemblyStats)
	require.NotNil(t, results.AssemblyStats.NumContigs)
	assert.Equal(t, 42, *results.AssemblyStats.NumContigs)
	require.NotNil(t, results.AssemblyStats.GCPercent)
	assert.InDelta(t, 51.2, *results.AssemblyStats.GCPercent, 0.001)
}

func TestParseMissingQuastReportDoesNotBlockOtherTools(t *testing.T) {
	dir := t.TempDir()
	// Not actually malformed-enough to error (the TSV reader is tolerant),
	// but exercise the directory-without-the-file path alongside another
	// present file to confirm independent fields don't block one another.
	writeFile(t, filepath.Join(dir, "04_arg_detection", "vfdb", "SRR1_vfdb.tsv"),
		"#FILE\tSEQUENCE\tSTART\tEND\tGENE\t%COVERAGE\t%IDENTITY\tDATABASE\tACCESSION\tPRODUCT\n"+
			"x\tc1\t1\t10\thlyA\t100\t100\tVFDB\tAC1\themolysin\n")

	results, err := Parse(dir, "SRR1")
	require.NoError(t, err)
	assert.Nil(t, results.AssemblyStats)
	require.Contains(t, results.ArgDetection, "vfdb")
	assert.Equal(t, "VIRULENCE", results.ArgDetection["vfdb"].Genes[0].ElementType)
}

func TestParseUniqueResistanceTypesDeduplicated(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "04_arg_detection", "resfinder", "SRR1_resfinder.tsv"),
		"#FILE\tSEQUENCE\tSTART\tEND\tGENE\t%COVERAGE\t%IDENTITY\tDATABASE\tACCESSION\tPRODUCT\tRESISTANCE\n"+
			"x\tc1\t1\t10\tblaTEM\t100\t100\tresfinder\tAC1\tp\tbeta-lactam\n")
	writeFile(t, filepath.Join(dir, "04_arg_detection", "ncbi", "SRR1_ncbi.tsv"),
		"#FILE\tSEQUENCE\tSTART\tEND\tGENE\t%COVERAGE\t%IDENTITY\tDATABASE\tACCESSION\tPRODUCT\tRESISTANCE\n"+
			"x\tc2\t1\t10\tblaTEM2\t100\t100\tNCBI\tAC2\tp\tbeta-lactam\n")

	results, err := Parse(dir, "SRR1")
	require.NoError(t, err)
	assert.Equal(t, []string{"beta-lactam"}, results.UniqueResistanceTypes)
}
