// Package assets implements component G: tracking presence, size, and
// background-download progress of the pipeline's reference-data bundles.
package assets

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"argpipe/orchestrator/internal/apierr"

	"golang.org/x/sync/errgroup"
)

const (
	StateIdle        = "idle"
	StateDownloading = "downloading"
	StateError       = "error"
)

// Asset is the probed, point-in-time view of one Spec.
type Asset struct {
	Key                     string `json:"key"`
	DisplayName             string `json:"display_name"`
	Installed               bool   `json:"installed"`
	SizeBytes               int64  `json:"size_bytes"`
	Required                bool   `json:"required"`
	DownloadState           string `json:"download_state"`
	DownloadProgressPercent int    `json:"download_progress_percent"`
	LastMessage             string `json:"last_message,omitempty"`
	LastError               string `json:"last_error,omitempty"`
}

type downloadStatus struct {
	state   string
	percent int
	message string
	err     string
}

// Manager owns the spec table and the in-memory download-status map; it
// probes the filesystem fresh on every List call rather than trusting
// cached installed-ness.
type Manager struct {
	specs map[string]Spec
	order []string

	mu       sync.Mutex
	statuses map[string]*downloadStatus

	limiter *errgroup.Group
}

func New(specs []Spec, maxConcurrentDownloads int) *Manager {
	m := &Manager{
		specs:    make(map[string]Spec, len(specs)),
		statuses: make(map[string]*downloadStatus),
		limiter:  &errgroup.Group{},
	}
	m.limiter.SetLimit(maxConcurrentDownloads)
	for _, s := range specs {
		m.specs[s.Key] = s
		m.order = append(m.order, s.Key)
	}
	return m
}

// List probes every configured asset for installed-ness and on-disk size.
func (m *Manager) List() []Asset {
	out := make([]Asset, 0, len(m.order))
	for _, key := range m.order {
		out = append(out, m.probe(key))
	}
	return out
}

// Get returns a single asset's probed state.
func (m *Manager) Get(key string) (Asset, error) {
	if _, ok := m.specs[key]; !ok {
		return Asset{}, apierr.New(apierr.KindNotFound, fmt.Sprintf("unknown database asset %q", key))
	}
	return m.probe(key), nil
}

func (m *Manager) probe(key string) Asset {
	spec := m.specs[key]
	installed := probeMarkerFiles(spec.InstallPath, spec.MarkerFiles)
	size := dirSize(spec.InstallPath)

	m.mu.Lock()
	st, downloading := m.statuses[key]
	m.mu.Unlock()

	a := Asset{
		Key:           spec.Key,
		DisplayName:   spec.DisplayName,
		Installed:     installed,
		SizeBytes:     size,
		Required:      spec.Required,
		DownloadState: StateIdle,
	}
	if downloading {
		a.DownloadState = st.state
		a.DownloadProgressPercent = st.percent
		a.LastMessage = st.message
		a.LastError = st.err
	}
	return a
}

// Update starts a background download for key unless one is already in
// flight, returning KindAlreadyDownloading in that case.
func (m *Manager) Update(key string) error {
	spec, ok := m.specs[key]
	if !ok {
		return apierr.New(apierr.KindNotFound, fmt.Sprintf("unknown database asset %q", key))
	}

	m.mu.Lock()
	if st, ok := m.statuses[key]; ok && st.state == StateDownloading {
		m.mu.Unlock()
		return apierr.New(apierr.KindAlreadyDownloading, fmt.Sprintf("%q is already downloading", key))
	}
	m.statuses[key] = &downloadStatus{state: StateDownloading, percent: 0, message: "queued"}
	m.mu.Unlock()

	go func() {
		m.limiter.Go(func() error {
			m.runDownload(spec)
			return nil
		})
	}()

	return nil
}

// Progress reports the in-flight or last-known download status for key.
func (m *Manager) Progress(key string) (state string, percent int, lastMessage string, err error) {
	if _, ok := m.specs[key]; !ok {
		return "", 0, "", apierr.New(apierr.KindNotFound, fmt.Sprintf("unknown database asset %q", key))
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.statuses[key]
	if !ok {
		return StateIdle, 0, "", nil
	}
	return st.state, st.percent, st.message, nil
}

func (m *Manager) setStatus(key string, update func(*downloadStatus)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.statuses[key]
	if !ok {
		st = &downloadStatus{}
		m.statuses[key] = st
	}
	update(st)
}

func (m *Manager) runDownload(spec Spec) {
	m.setStatus(spec.Key, func(s *downloadStatus) {
		s.state = StateDownloading
		s.message = "starting download"
	})

	if err := os.MkdirAll(spec.InstallPath, 0o755); err != nil {
		m.fail(spec.Key, err)
		return
	}

	if spec.SourceURL == "" {
		// No fetchable source configured for this asset; the operator's
		// own install tooling is responsible for populating install_path.
		m.setStatus(spec.Key, func(s *downloadStatus) {
			s.state = StateError
			s.err = "no download source configured for this asset"
		})
		return
	}

	archivePath := filepath.Join(spec.InstallPath, spec.ArchiveName)
	err := downloadWithProgress(spec.SourceURL, archivePath, func(percent int, message string) {
		m.setStatus(spec.Key, func(s *downloadStatus) {
			s.state = StateDownloading
			s.percent = percent
			s.message = message
		})
	})
	if err != nil {
		m.fail(spec.Key, err)
		return
	}

	m.setStatus(spec.Key, func(s *downloadStatus) {
		s.message = "extracting archive"
		s.percent = 95
	})
	if err := extractArchive(archivePath, spec.InstallPath); err != nil {
		m.fail(spec.Key, err)
		return
	}
	_ = os.Remove(archivePath)

	if !probeMarkerFiles(spec.InstallPath, spec.MarkerFiles) {
		m.fail(spec.Key, fmt.Errorf("download completed but marker files are still missing"))
		return
	}

	m.setStatus(spec.Key, func(s *downloadStatus) {
		s.state = StateIdle
		s.percent = 100
		s.message = "installed"
		s.err = ""
	})
}

func (m *Manager) fail(key string, err error) {
	m.setStatus(key, func(s *downloadStatus) {
		s.state = StateError
		s.err = err.Error()
		s.message = "download failed"
	})
}

func probeMarkerFiles(installPath string, markers []string) bool {
	if len(markers) == 0 {
		return false
	}
	for _, marker := range markers {
		if _, err := os.Stat(filepath.Join(installPath, marker)); err != nil {
			return false
		}
	}
	return true
}

func dirSize(root string) int64 {
	var total int64
	_ = filepath.Walk(root, func(_ string, info os.FileInfo, err error) error {
		if err != nil || info == nil || info.IsDir() {
			return nil
		}
		total += info.Size()
		return nil
	})
	return total
}
