package parser

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadTSVTableMissingFileReturnsError(t *testing.T) {
	_, err := readTSVTable(filepath.Join(t.TempDir(), "absent.tsv"))
	require.Error(t, err)
	assert.True(t, os.IsNotExist(err))
}

func TestReadTSVTableHeaderByNameNotIndex(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "table.tsv")
	require.NoError(t, os.WriteFile(path, []byte("GENE\t%IDENTITY\nblaTEM\t99.5\n"), 0o644))

	rows, err := readTSVTable(path)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "blaTEM", rows[0]["GENE"])
	assert.Equal(t, "99.5", rows[0]["%IDENTITY"])
}

func TestReadTSVTableSkipsCommentAndBannerLines(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "table.tsv")
	content := "# some comment\n" +
		"Using database resfinder\n" +
		"#FILE\tGENE\tRESISTANCE\n" +
		"sample.tsv\tblaTEM\tbeta-lactam\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	rows, err := readTSVTable(path)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "blaTEM", rows[0]["GENE"])
}

func TestReadTSVTableMissingColumnsYieldEmptyNotError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "table.tsv")
	require.NoError(t, os.WriteFile(path, []byte("GENE\tRESISTANCE\tEXTRA\nblaTEM\tbeta-lactam\n"), 0o644))

	rows, err := readTSVTable(path)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "", rows[0]["EXTRA"])
}

func TestReadTSVTableEmptyFileReturnsNilRows(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "empty.tsv")
	require.NoError(t, os.WriteFile(path, []byte(""), 0o644))

	rows, err := readTSVTable(path)
	require.NoError(t, err)
	assert.Nil(t, rows)
}

func TestParseIntTolerantYieldsNilOnBadValue(t *testing.T) {
	assert.Nil(t, parseIntTolerant("not-a-number"))
	assert.Nil(t, parseIntTolerant(""))
	v := parseIntTolerant("42")
	require.NotNil(t, v)
	assert.Equal(t, 42, *v)
}

func TestParseFloatPtrTolerantYieldsNilOnBadValue(t *testing.T) {
	assert.Nil(t, parseFloatPtrTolerant("garbage"))
	assert.Nil(t, parseFloatPtrTolerant(""))
	v := parseFloatPtrTolerant("99.5")
	require.NotNil(t, v)
	assert.Equal(t, 99.5, *v)
}
