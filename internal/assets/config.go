package assets

import "path/filepath"

// Spec is the static configuration of one reference-data bundle, the Go
// analogue of original_source's DATABASES_CONFIG table. The bundle's own
// build/install tooling lives outside this service; only the window onto
// presence/size/download progress is owned here.
type Spec struct {
	Key         string
	DisplayName string
	Description string
	InstallPath string // directory under AssetsConfig.InstallRoot
	MarkerFiles []string
	SourceURL   string
	ArchiveName string
	Required    bool
}

// DefaultSpecs mirrors the reference bundles original_source tracks:
// Kraken2, AMRFinderPlus, CARD, PointFinder, MLST, and the KMA/ResFinder
// index.
func DefaultSpecs(installRoot string) []Spec {
	return []Spec{
		{
			Key:         "kraken2",
			DisplayName: "Kraken2",
			Description: "Taxonomic classification database",
			InstallPath: filepath.Join(installRoot, "kraken2_db"),
			MarkerFiles: []string{"hash.k2d"},
			SourceURL:   "https://genome-idx.s3.amazonaws.com/kraken/k2_standard_08gb_20231009.tar.gz",
			ArchiveName: "kraken2_db.tar.gz",
			Required:    false,
		},
		{
			Key:         "amrfinder",
			DisplayName: "AMRFinderPlus",
			Description: "NCBI ARG detection database",
			InstallPath: filepath.Join(installRoot, "amrfinder_db"),
			MarkerFiles: []string{"AMRProt", "AMR.LIB"},
			Required:    true,
		},
		{
			Key:         "card",
			DisplayName: "CARD",
			Description: "Comprehensive Antibiotic Resistance Database",
			InstallPath: filepath.Join(installRoot, "card_db"),
			MarkerFiles: []string{"card.json", "protein_fasta_protein_homolog_model.fasta"},
			SourceURL:   "https://card.mcmaster.ca/latest/data",
			ArchiveName: "card-data.tar.bz2",
			Required:    true,
		},
		{
			Key:         "pointfinder",
			DisplayName: "PointFinder",
			Description: "Point-mutation resistance database",
			InstallPath: filepath.Join(installRoot, "pointfinder_db"),
			MarkerFiles: []string{"config"},
			Required:    false,
		},
		{
			Key:         "mlst",
			DisplayName: "MLST",
			Description: "Multi-locus sequence typing database",
			InstallPath: filepath.Join(installRoot, "mlst_db"),
			MarkerFiles: []string{"pubmlst"},
			Required:    false,
		},
		{
			Key:         "kma",
			DisplayName: "KMA/ResFinder",
			Description: "KMA index for ResFinder",
			InstallPath: filepath.Join(installRoot, "kma_db"),
			MarkerFiles: []string{"resfinder.name"},
			Required:    true,
		},
	}
}
