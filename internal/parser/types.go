// Package parser implements component F: walking a completed job's
// output_dir and producing a structured Results record, tolerant of
// missing or malformed files.
package parser

// Gene is one resistance or virulence gene record, shared by every
// per-tool table and the deduplicated view.
type Gene struct {
	Gene           string   `json:"gene"`
	Sequence       string   `json:"sequence"`
	Start          int      `json:"start"`
	End            int      `json:"end"`
	Strand         string   `json:"strand"`
	Coverage       *float64 `json:"coverage"`
	Identity       *float64 `json:"identity"`
	Database       string   `json:"database"`
	Accession      string   `json:"accession"`
	Product        string   `json:"product,omitempty"`
	Resistance     string   `json:"resistance,omitempty"`
	Subclass       string   `json:"subclass,omitempty"`
	ElementType    string   `json:"element_type,omitempty"`
	ElementSubtype string   `json:"element_subtype,omitempty"`
	Priority       string   `json:"priority,omitempty"`
}

// DetectionResults is the per-tool result table from §4.F's aggregation.
type DetectionResults struct {
	Tool     string `json:"tool"`
	NumGenes int    `json:"num_genes"`
	Genes    []Gene `json:"genes"`
}

// AssemblyStats are the QUAST fields §4.F names explicitly.
type AssemblyStats struct {
	NumContigs    *int     `json:"num_contigs"`
	TotalLength   *int     `json:"total_length"`
	LargestContig *int     `json:"largest_contig"`
	N50           *int     `json:"n50"`
	L50           *int     `json:"l50"`
	GCPercent     *float64 `json:"gc_percent"`
}

// DeduplicatedGene carries the AMRFinderPlus-first merge view, additive to
// §4.F's plain union aggregation.
type DeduplicatedGene struct {
	Gene
	Source  string   `json:"source"`
	Sources []string `json:"sources"`
}

// DeduplicationStats summarizes the merge in DeduplicatedGene.
type DeduplicationStats struct {
	TotalRaw          int            `json:"total_raw"`
	TotalDeduplicated int            `json:"total_deduplicated"`
	DuplicatesRemoved int            `json:"duplicates_removed"`
	ByType            map[string]int `json:"by_type"`
}

// Taxonomy is the Kraken2-style classification supplement.
type Taxonomy struct {
	Species    string  `json:"species,omitempty"`
	Genus      string  `json:"genus,omitempty"`
	Confidence float64 `json:"confidence"`
	Source     string  `json:"source"`
}

// MLST is the sequence-typing supplement.
type MLST struct {
	Scheme       string            `json:"scheme,omitempty"`
	SequenceType string            `json:"sequence_type,omitempty"`
	Source       string            `json:"source"`
	Alleles      map[string]string `json:"alleles,omitempty"`
	Genes        []string          `json:"genes,omitempty"`
	Profile      string            `json:"profile,omitempty"`
}

// Results is the complete record returned by Parse.
type Results struct {
	OutputDirectory string `json:"output_directory"`

	Metadata map[string]interface{} `json:"metadata,omitempty"`

	AssemblyStats *AssemblyStats `json:"assembly_stats,omitempty"`

	ArgDetection map[string]DetectionResults `json:"arg_detection"`

	DeduplicatedGenes  []DeduplicatedGene  `json:"deduplicated_genes,omitempty"`
	DeduplicationStats *DeduplicationStats `json:"deduplication_stats,omitempty"`

	TotalArgGenes         int      `json:"total_arg_genes"`
	TotalUniqueGenes       int      `json:"total_unique_genes"`
	UniqueResistanceTypes []string `json:"unique_resistance_types"`

	Taxonomy *Taxonomy `json:"taxonomy,omitempty"`
	MLST     *MLST     `json:"mlst,omitempty"`

	FeaturesML map[string]string `json:"features_ml,omitempty"`

	ReportHTMLPath string `json:"report_html_path,omitempty"`

	ParseWarnings []string `json:"parse_warnings,omitempty"`
}
