package services

import (
	"archive/tar"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/moevm/nosql1h25-mldata/pkg/repositories"
	"github.com/moevm/nosql1h25-mldata/pkg/storage"
)

const archiveFormatVersion = 1

// archive entry names
const (
	manifestEntry  = "manifest.yaml"
	datasetsEntry  = "metadata/datasets.json"
	activityEntry  = "metadata/activity.json"
	graphsEntry    = "metadata/graphs.json"
	filesEntryDir  = "files/"
	filesExtension = ".csv"
)

// Manifest describes an archive's provenance.
type Manifest struct {
	FormatVersion int       `yaml:"format_version"`
	ExportedAt    time.Time `yaml:"exported_at"`
	Datasets      int       `yaml:"datasets"`
}

// ArchiveService serializes the whole store (metadata collections
// plus raw CSV files) into one gzipped tarball and restores it back.
// Import is a destructive whole-database replace, not a merge.
type ArchiveService interface {
	// Export produces the archive bytes and a timestamp-derived
	// filename.
	Export(ctx context.Context) (string, []byte, error)
	// Import replaces the metadata store and the upload directory
	// with an archive's contents. The metadata replace is
	// transactional; any failure before the commit leaves prior
	// state untouched.
	Import(ctx context.Context, r io.Reader) error
}

type archiveService struct {
	archive repositories.ArchiveRepository
	files   *storage.FileStore
	logger  *zap.Logger
	now     func() time.Time
}

// NewArchiveService creates a new ArchiveService.
func NewArchiveService(archive repositories.ArchiveRepository, files *storage.FileStore, logger *zap.Logger) ArchiveService {
	return &archiveService{
		archive: archive,
		files:   files,
		logger:  logger,
		now:     time.Now,
	}
}

var _ ArchiveService = (*archiveService)(nil)

func (s *archiveService) Export(ctx context.Context) (string, []byte, error) {
	dump, err := s.archive.DumpAll(ctx)
	if err != nil {
		return "", nil, err
	}

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)

	manifest, err := yaml.Marshal(Manifest{
		FormatVersion: archiveFormatVersion,
		ExportedAt:    s.now().UTC(),
		Datasets:      len(dump.Datasets),
	})
	if err != nil {
		return "", nil, fmt.Errorf("failed to marshal manifest: %w", err)
	}
	if err := writeTarEntry(tw, manifestEntry, manifest); err != nil {
		return "", nil, err
	}

	for entry, v := range map[string]any{
		datasetsEntry: dump.Datasets,
		activityEntry: dump.Activity,
		graphsEntry:   dump.Graphs,
	} {
		data, err := json.Marshal(v)
		if err != nil {
			return "", nil, fmt.Errorf("failed to marshal %s: %w", entry, err)
		}
		if err := writeTarEntry(tw, entry, data); err != nil {
			return "", nil, err
		}
	}

	ids, err := s.files.List()
	if err != nil {
		return "", nil, err
	}
	for _, id := range ids {
		data, err := s.files.Read(id)
		if err != nil {
			return "", nil, err
		}
		if err := writeTarEntry(tw, filesEntryDir+id+filesExtension, data); err != nil {
			return "", nil, err
		}
	}

	if err := tw.Close(); err != nil {
		return "", nil, fmt.Errorf("failed to finalize archive: %w", err)
	}
	if err := gz.Close(); err != nil {
		return "", nil, fmt.Errorf("failed to finalize compression: %w", err)
	}

	filename := fmt.Sprintf("mldata-export-%s.tar.gz", s.now().Format("20060102-150405"))
	s.logger.Info("Archive exported",
		zap.String("filename", filename),
		zap.Int("datasets", len(dump.Datasets)),
		zap.Int("bytes", buf.Len()))
	return filename, buf.Bytes(), nil
}

func (s *archiveService) Import(ctx context.Context, r io.Reader) error {
	// Stage everything first so a broken archive is rejected before
	// any state is touched. The staging dir is removed regardless of
	// outcome.
	staging, err := os.MkdirTemp("", "mldata-import-*")
	if err != nil {
		return fmt.Errorf("failed to create staging dir: %w", err)
	}
	defer os.RemoveAll(staging)

	gz, err := gzip.NewReader(r)
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	defer gz.Close()

	var (
		manifest Manifest
		dump     repositories.DatabaseDump
		seen     = map[string]bool{}
	)

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read archive entry: %w", err)
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}

		name := path.Clean(hdr.Name)
		data, err := io.ReadAll(tr)
		if err != nil {
			return fmt.Errorf("failed to read archive entry %s: %w", name, err)
		}

		switch {
		case name == manifestEntry:
			if err := yaml.Unmarshal(data, &manifest); err != nil {
				return fmt.Errorf("failed to parse manifest: %w", err)
			}
		case name == datasetsEntry:
			if err := json.Unmarshal(data, &dump.Datasets); err != nil {
				return fmt.Errorf("failed to parse %s: %w", name, err)
			}
		case name == activityEntry:
			if err := json.Unmarshal(data, &dump.Activity); err != nil {
				return fmt.Errorf("failed to parse %s: %w", name, err)
			}
		case name == graphsEntry:
			if err := json.Unmarshal(data, &dump.Graphs); err != nil {
				return fmt.Errorf("failed to parse %s: %w", name, err)
			}
		case strings.HasPrefix(name, filesEntryDir) && strings.HasSuffix(name, filesExtension):
			id := strings.TrimSuffix(path.Base(name), filesExtension)
			if err := os.WriteFile(filepath.Join(staging, id+filesExtension), data, 0o644); err != nil {
				return fmt.Errorf("failed to stage file %s: %w", name, err)
			}
		}
		seen[name] = true
	}

	if !seen[manifestEntry] {
		return fmt.Errorf("archive has no manifest")
	}
	if manifest.FormatVersion != archiveFormatVersion {
		return fmt.Errorf("unsupported archive format version %d", manifest.FormatVersion)
	}
	if !seen[datasetsEntry] || !seen[activityEntry] || !seen[graphsEntry] {
		return fmt.Errorf("archive is missing metadata dumps")
	}

	if err := s.archive.RestoreAll(ctx, &dump); err != nil {
		return err
	}

	// The store now holds the archive's state; swap the upload dir to
	// match it.
	staged, err := readStagedFiles(staging)
	if err != nil {
		return err
	}
	if err := s.files.ReplaceAll(staged); err != nil {
		return err
	}

	s.logger.Info("Archive imported",
		zap.Int("datasets", len(dump.Datasets)),
		zap.Int("files", len(staged)))
	return nil
}

func writeTarEntry(tw *tar.Writer, name string, data []byte) error {
	hdr := &tar.Header{
		Name: name,
		Mode: 0o644,
		Size: int64(len(data)),
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return fmt.Errorf("failed to write archive header %s: %w", name, err)
	}
	if _, err := tw.Write(data); err != nil {
		return fmt.Errorf("failed to write archive entry %s: %w", name, err)
	}
	return nil
}

func readStagedFiles(dir string) (map[string][]byte, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read staging dir: %w", err)
	}

	files := make(map[string][]byte, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), filesExtension) {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read staged file %s: %w", e.Name(), err)
		}
		files[strings.TrimSuffix(e.Name(), filesExtension)] = data
	}
	return files, nil
}
