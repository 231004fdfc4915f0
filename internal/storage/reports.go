package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/gzip"
	"github.com/saviobatista/sbs-deconflict/internal/types"
)

// Reports writes the merged conflict report of each pass
type Reports struct {
	reportFile string
	archiveDir string
}

// NewReports creates a report writer. An empty archiveDir disables
// per-pass archives.
func NewReports(reportFile, archiveDir string) *Reports {
	return &Reports{reportFile: reportFile, archiveDir: archiveDir}
}

// WriteReport replaces the report file with the given clusters
func (r *Reports) WriteReport(clusters []types.Cluster) error {
	if clusters == nil {
		clusters = []types.Cluster{}
	}
	data, err := json.MarshalIndent(clusters, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	return writeAtomic(r.reportFile, data)
}

// ReadReport reads the current report file
func (r *Reports) ReadReport() ([]types.Cluster, error) {
	data, err := os.ReadFile(r.reportFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read report: %w", err)
	}

	var clusters []types.Cluster
	if err := json.Unmarshal(data, &clusters); err != nil {
		return nil, fmt.Errorf("failed to parse report %s: %w", r.reportFile, err)
	}
	return clusters, nil
}

// Archive writes a gzip copy of one pass report and returns its path.
// It returns an empty path when archiving is disabled.
func (r *Reports) Archive(pass int, clusters []types.Cluster) (string, error) {
	if r.archiveDir == "" {
		return "", nil
	}
	if err := os.MkdirAll(r.archiveDir, 0o750); err != nil {
		return "", fmt.Errorf("failed to create archive directory: %w", err)
	}

	if clusters == nil {
		clusters = []types.Cluster{}
	}
	data, err := json.Marshal(clusters)
	if err != nil {
		return "", fmt.Errorf("failed to marshal report: %w", err)
	}

	path := filepath.Join(r.archiveDir, fmt.Sprintf("pass_%03d.json.gz", pass))
	if err := writeGzip(path, data); err != nil {
		return "", err
	}
	return path, nil
}

// ReadArchive decodes a gzip report archive
func ReadArchive(path string) ([]types.Cluster, error) {
	//nolint:gosec // path is controlled by application logic
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}
	defer f.Close()

	zr, err := gzip.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read archive %s: %w", path, err)
	}
	defer zr.Close()

	var clusters []types.Cluster
	if err := json.NewDecoder(zr).Decode(&clusters); err != nil {
		return nil, fmt.Errorf("failed to parse archive %s: %w", path, err)
	}
	return clusters, nil
}

func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".report-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp report: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write report: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp report: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace report: %w", err)
	}
	return nil
}

func writeGzip(path string, data []byte) error {
	//nolint:gosec // path is controlled by application logic
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create compressed file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			fmt.Fprintf(os.Stderr, "error closing compressed file: %v\n", cerr)
		}
	}()

	zw := gzip.NewWriter(f)
	if _, err := zw.Write(data); err != nil {
		return fmt.Errorf("failed to write compressed data: %w", err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("failed to flush compressed data: %w", err)
	}
	return nil
}
