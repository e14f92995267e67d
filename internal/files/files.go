// Package files implements read-only listing and streaming of a
// completed job's output_dir, adapted from the teacher's blob-storage
// layer to a fixed, per-job directory instead of a content-addressed pool.
package files

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"argpipe/orchestrator/internal/apierr"
)

// Entry is one file under a job's output_dir.
type Entry struct {
	RelPath string `json:"rel_path"`
	Size    int64  `json:"size"`
	Mime    string `json:"mime"`
}

// List walks outputDir and returns every regular file as an Entry with a
// slash-separated rel_path.
func List(outputDir string) ([]Entry, error) {
	var entries []Entry
	err := filepath.Walk(outputDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(outputDir, path)
		if err != nil {
			return err
		}
		entries = append(entries, Entry{
			RelPath: filepath.ToSlash(rel),
			Size:    info.Size(),
			Mime:    mimeFor(path),
		})
		return nil
	})
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apierr.New(apierr.KindNotFound, "output_dir does not exist")
		}
		return nil, err
	}
	return entries, nil
}

// Open resolves relPath against outputDir, rejecting any path that would
// escape it, and returns a handle for streaming.
func Open(outputDir, relPath string) (*os.File, string, error) {
	cleanRel := filepath.Clean(relPath)
	if strings.HasPrefix(cleanRel, "..") || filepath.IsAbs(cleanRel) {
		return nil, "", apierr.New(apierr.KindInvalidInput, "rel_path escapes output directory")
	}

	fullPath := filepath.Join(outputDir, cleanRel)
	absOutputDir, err := filepath.Abs(outputDir)
	if err != nil {
		return nil, "", err
	}
	absFullPath, err := filepath.Abs(fullPath)
	if err != nil {
		return nil, "", err
	}
	if !strings.HasPrefix(absFullPath, absOutputDir+string(os.PathSeparator)) && absFullPath != absOutputDir {
		return nil, "", apierr.New(apierr.KindInvalidInput, "rel_path escapes output directory")
	}

	f, err := os.Open(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, "", apierr.New(apierr.KindNotFound, fmt.Sprintf("file %q not found", relPath))
		}
		return nil, "", err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, "", err
	}
	if info.IsDir() {
		f.Close()
		return nil, "", apierr.New(apierr.KindInvalidInput, "rel_path refers to a directory")
	}

	return f, mimeFor(fullPath), nil
}

func mimeFor(path string) string {
	if t := mime.TypeByExtension(filepath.Ext(path)); t != "" {
		return t
	}
	return "application/octet-stream"
}
