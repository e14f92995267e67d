// Package classify implements component C: mapping a submitted sample
// identifier to one of the known input types, or rejecting it.
package classify

import (
	"os"
	"regexp"
	"strings"

	"argpipe/orchestrator/internal/apierr"
	"argpipe/orchestrator/internal/models"
)

var (
	readsArchiveRe      = regexp.MustCompile(`^[SED]RR\d+$`)
	sequenceAccessionRe = regexp.MustCompile(`^(CP|NC|NZ)_?\d+(\.\d+)?$`)
	assemblyAccessionRe = regexp.MustCompile(`^GC[AF]_\d+(\.\d+)?$`)
)

var localFileSuffixes = []string{".fasta", ".fna", ".fa", ".fasta.gz", ".fna.gz"}

// Classify applies spec.md §4.C's first-match-wins pattern list.
// statFile is injected so tests can classify a path without touching the
// real filesystem; production callers pass os.Stat.
func Classify(sampleID string, statFile func(string) (os.FileInfo, error)) (string, error) {
	switch {
	case readsArchiveRe.MatchString(sampleID):
		return models.InputTypeReadsArchive, nil
	case sequenceAccessionRe.MatchString(sampleID):
		return models.InputTypeSequenceAccession, nil
	case assemblyAccessionRe.MatchString(sampleID):
		return models.InputTypeAssemblyAccession, nil
	}

	if isLocalFileCandidate(sampleID) {
		info, err := statFile(sampleID)
		if err == nil && !info.IsDir() {
			return models.InputTypeLocalFile, nil
		}
	}

	return "", apierr.New(apierr.KindInvalidInput, "unrecognized sample_id format")
}

func isLocalFileCandidate(sampleID string) bool {
	if strings.HasPrefix(sampleID, "/") {
		return true
	}
	for _, suffix := range localFileSuffixes {
		if strings.HasSuffix(sampleID, suffix) {
			return true
		}
	}
	return false
}
