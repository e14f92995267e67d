package parser

import (
	"os"
	"path/filepath"
)

// toolSpec is one entry in the table of per-tool output locations, as
// spec.md §9's design note asks for: {tool_key, relative path, row mapper}.
type toolSpec struct {
	key      string
	relPath  func(sampleID string) string
	database string
	strict   bool // true = readTSVTableStrict (AMRFinderPlus); false = readTSVTable, abricate-style banner format
	mapRow   func(row map[string]string, database string) Gene
}

// abricateTools covers the abricate-family detectors that share the
// "#FILE" banner-header format, including the plasmidfinder entry spec.md
// adds alongside resfinder/card/ncbi/vfdb.
var abricateTools = []toolSpec{
	{key: "resfinder", relPath: func(s string) string { return filepath.Join("04_arg_detection", "resfinder", s+"_resfinder.tsv") }, database: "resfinder", mapRow: mapAbricateRow},
	{key: "card", relPath: func(s string) string { return filepath.Join("04_arg_detection", "card", s+"_card.tsv") }, database: "CARD", mapRow: mapAbricateRow},
	{key: "vfdb", relPath: func(s string) string { return filepath.Join("04_arg_detection", "vfdb", s+"_vfdb.tsv") }, database: "VFDB", mapRow: mapVFDBRow},
	{key: "ncbi", relPath: func(s string) string { return filepath.Join("04_arg_detection", "ncbi", s+"_ncbi.tsv") }, database: "NCBI", mapRow: mapAbricateRow},
	{key: "plasmidfinder", relPath: func(s string) string { return filepath.Join("04_arg_detection", "plasmidfinder", s+"_plasmidfinder.tsv") }, database: "plasmidfinder", mapRow: mapAbricateRow},
}

var amrfinderplusTool = toolSpec{
	key:      "amrfinderplus",
	relPath:  func(s string) string { return filepath.Join("04_arg_detection", "amrfinderplus", s+"_amrfinderplus.tsv") },
	database: "AMRFinderPlus",
	strict:   true,
	mapRow:   mapAMRFinderPlusRow,
}

func mapAbricateRow(row map[string]string, database string) Gene {
	g := Gene{
		Gene:       row["GENE"],
		Sequence:   row["SEQUENCE"],
		Strand:     orDefault(row["STRAND"], "+"),
		Coverage:   parseFloatPtrTolerant(row["%COVERAGE"]),
		Identity:   parseFloatPtrTolerant(row["%IDENTITY"]),
		Database:   database,
		Accession:  row["ACCESSION"],
		Product:    row["PRODUCT"],
		Resistance: row["RESISTANCE"],
	}
	if v := parseIntTolerant(row["START"]); v != nil {
		g.Start = *v
	}
	if v := parseIntTolerant(row["END"]); v != nil {
		g.End = *v
	}
	return g
}

func mapVFDBRow(row map[string]string, database string) Gene {
	g := mapAbricateRow(row, database)
	g.ElementType = "VIRULENCE"
	if g.Resistance == "" {
		g.Resistance = "Virulence"
	}
	return g
}

func mapAMRFinderPlusRow(row map[string]string, _ string) Gene {
	elementType := orDefault(row["Element type"], "AMR")
	gene := row["Gene symbol"]
	if gene == "" {
		gene = row["Element symbol"]
	}
	g := Gene{
		Gene:           gene,
		Sequence:       row["Contig id"],
		Strand:         orDefault(row["Strand"], "+"),
		Coverage:       floatPtr(100.0),
		Database:       "AMRFinderPlus",
		Accession:      row["Accession of closest sequence"],
		Product:        row["Sequence name"],
		Resistance:     row["Class"],
		Subclass:       row["Subclass"],
		ElementType:    elementType,
		ElementSubtype: row["Element subtype"],
	}
	if v := parseIntTolerant(row["Start"]); v != nil {
		g.Start = *v
	}
	if v := parseIntTolerant(row["Stop"]); v != nil {
		g.End = *v
	}
	if v := parseFloatPtrTolerant(row["% Identity to reference sequence"]); v != nil {
		g.Identity = v
	} else {
		g.Identity = floatPtr(100.0)
	}
	return g
}

// loadTool reads one table-driven tool's TSV into a DetectionResults.
func loadTool(path string, spec toolSpec) (*DetectionResults, error) {
	var rows []map[string]string
	var err error
	if spec.strict {
		rows, err = readTSVTableStrict(path)
	} else {
		rows, err = readTSVTable(path)
	}
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	genes := make([]Gene, 0, len(rows))
	for _, row := range rows {
		genes = append(genes, spec.mapRow(row, spec.database))
	}
	genes = dedupeWithinTool(spec.key, genes)
	return &DetectionResults{Tool: spec.key, NumGenes: len(genes), Genes: genes}, nil
}

// rgiResultPath is the RGI best-hit text table, distinct from the abricate
// format: columns ORF, Best_Hit_ARO, Drug Class, Resistance Mechanism.
func rgiResultPath(outputDir, sampleID string) string {
	return filepath.Join(outputDir, "04_arg_detection", "rgi", sampleID+"_rgi.txt")
}

func parseRGI(outputDir, sampleID string) (*DetectionResults, error) {
	rows, err := readTSVTable(rgiResultPath(outputDir, sampleID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	genes := make([]Gene, 0, len(rows))
	for _, row := range rows {
		gene := row["Best_Hit_ARO"]
		if gene == "" {
			gene = row["ARO"]
		}
		genes = append(genes, Gene{
			Gene:       gene,
			Database:   "RGI",
			Resistance: row["Drug Class"],
			Product:    row["Resistance Mechanism"],
		})
	}
	genes = dedupeWithinTool("rgi", genes)
	return &DetectionResults{Tool: "rgi", NumGenes: len(genes), Genes: genes}, nil
}
