package classify

import (
	"os"
	"testing"

	"argpipe/orchestrator/internal/apierr"
	"argpipe/orchestrator/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func statAlwaysMissing(string) (os.FileInfo, error) {
	return nil, os.ErrNotExist
}

func TestClassifyReadsArchive(t *testing.T) {
	for _, id := range []string{"SRR28083254", "ERR123", "DRR9"} {
		got, err := Classify(id, statAlwaysMissing)
		require.NoError(t, err)
		assert.Equal(t, models.InputTypeReadsArchive, got)
	}
}

func TestClassifySequenceAccession(t *testing.T) {
	for _, id := range []string{"CP012345", "CP012345.1", "NC_000913", "NZ_012345.2"} {
		got, err := Classify(id, statAlwaysMissing)
		require.NoError(t, err)
		assert.Equal(t, models.InputTypeSequenceAccession, got)
	}
}

func TestClassifyAssemblyAccession(t *testing.T) {
	for _, id := range []string{"GCA_000005845.2", "GCF_000009605.1"} {
		got, err := Classify(id, statAlwaysMissing)
		require.NoError(t, err)
		assert.Equal(t, models.InputTypeAssemblyAccession, got)
	}
}

func TestClassifyLocalFileRequiresExistingReadableFile(t *testing.T) {
	statOK := func(string) (os.FileInfo, error) {
		return fakeFileInfo{}, nil
	}
	got, err := Classify("/data/sample.fasta", statOK)
	require.NoError(t, err)
	assert.Equal(t, models.InputTypeLocalFile, got)

	_, err = Classify("/data/sample.fasta", statAlwaysMissing)
	require.Error(t, err)
	assert.Equal(t, apierr.KindInvalidInput, apierr.KindOf(err))
}

func TestClassifyLocalFileRecognizesAllSuffixes(t *testing.T) {
	statOK := func(string) (os.FileInfo, error) { return fakeFileInfo{}, nil }
	for _, id := range []string{"sample.fasta", "sample.fna", "sample.fa", "sample.fasta.gz", "sample.fna.gz"} {
		got, err := Classify(id, statOK)
		require.NoError(t, err)
		assert.Equal(t, models.InputTypeLocalFile, got)
	}
}

func TestClassifyRejectsPathTraversal(t *testing.T) {
	_, err := Classify("../../etc/passwd", statAlwaysMissing)
	require.Error(t, err)
	assert.Equal(t, apierr.KindInvalidInput, apierr.KindOf(err))
}

func TestClassifyRejectsGarbage(t *testing.T) {
	_, err := Classify("not-a-real-identifier", statAlwaysMissing)
	require.Error(t, err)
	assert.Equal(t, apierr.KindInvalidInput, apierr.KindOf(err))
}

type fakeFileInfo struct{ os.FileInfo }

func (fakeFileInfo) IsDir() bool { return false }
func (fakeFileInfo) Name() string { return "sample.fasta" }
