package archive

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/prappser/gallery_server/internal/apperr"
	"github.com/prappser/gallery_server/internal/asset"
	"github.com/rs/zerolog/log"
)

const DefaultArtifactName = "verified.zip"

type Config struct {
	ArtifactName     string        `mapstructure:"artifact_name"`
	CompressionLevel int           `mapstructure:"compression_level"`
	Schedule         string        `mapstructure:"schedule"`
	Backend          BackendConfig `mapstructure:",squash"`
}

type Artifact struct {
	Name      string `json:"name"`
	Entries   int    `json:"entries"`
	SizeBytes int64  `json:"sizeBytes"`
	CreatedAt int64  `json:"createdAt"`
}

// Exporter snapshots the verified state into a single flat archive. Exports
// run one at a time; a second caller waits for the first to finish.
type Exporter struct {
	store   *asset.Store
	backend Backend
	name    string
	level   int
	events  asset.EventPublisher
	mu      sync.Mutex
}

func NewExporter(store *asset.Store, backend Backend, config Config, events asset.EventPublisher) *Exporter {
	name := config.ArtifactName
	if name == "" {
		name = DefaultArtifactName
	}
	return &Exporter{
		store:   store,
		backend: backend,
		name:    name,
		level:   config.CompressionLevel,
		events:  events,
	}
}

func (e *Exporter) ArtifactName() string {
	return e.name
}

type entry struct {
	name string
	path string
}

// Export writes every regular file of every verified owner folder into the
// artifact under its bare filename. When two owners hold the same filename
// the owner that sorts last wins.
func (e *Exporter) Export(ctx context.Context) (*Artifact, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	// the artifact is replaced as a whole or not at all, even if the caller
	// goes away mid-export
	ctx = context.WithoutCancel(ctx)

	entries, err := e.collect()
	if err != nil {
		return nil, err
	}

	tmp, err := os.CreateTemp(e.backend.TempDir(), "."+e.name+"-*.tmp")
	if err != nil {
		return nil, apperr.IO(err, "failed to create ZIP file")
	}
	tmpPath := tmp.Name()

	if err := e.write(tmp, entries); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		log.Error().Err(err).Msg("Error creating ZIP file")
		return nil, apperr.IO(err, "failed to create ZIP file")
	}

	info, err := tmp.Stat()
	if err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return nil, apperr.IO(err, "failed to create ZIP file")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return nil, apperr.IO(err, "failed to create ZIP file")
	}

	if err := e.backend.Publish(ctx, e.name, tmpPath); err != nil {
		os.Remove(tmpPath)
		log.Error().Err(err).Str("artifact", e.name).Msg("Failed to publish ZIP file")
		return nil, apperr.IO(err, "failed to publish ZIP file")
	}

	artifact := &Artifact{
		Name:      e.name,
		Entries:   len(entries),
		SizeBytes: info.Size(),
		CreatedAt: time.Now().Unix(),
	}
	log.Info().
		Str("artifact", artifact.Name).
		Int("entries", artifact.Entries).
		Int64("sizeBytes", artifact.SizeBytes).
		Msg("ZIP file created")
	if e.events != nil {
		e.events.Publish(&asset.Event{Type: asset.EventExported, State: asset.StateVerified, File: e.name, At: artifact.CreatedAt})
	}

	return artifact, nil
}

// Fetch opens the most recently published artifact.
func (e *Exporter) Fetch(ctx context.Context) (io.ReadCloser, int64, error) {
	return e.backend.Open(ctx, e.name)
}

func (e *Exporter) collect() ([]entry, error) {
	verifiedDir := e.store.StateDir(asset.StateVerified)
	owners, err := os.ReadDir(verifiedDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, apperr.NotFound("verified folder does not exist")
		}
		return nil, apperr.IO(err, "failed to scan verified folder")
	}

	var entries []entry
	index := make(map[string]int)
	for _, owner := range owners {
		if !owner.IsDir() {
			continue
		}
		ownerDir := filepath.Join(verifiedDir, owner.Name())
		files, err := os.ReadDir(ownerDir)
		if err != nil {
			return nil, apperr.IO(err, "failed to scan folder %q", owner.Name())
		}
		for _, file := range files {
			if !file.Type().IsRegular() {
				continue
			}
			found := entry{name: file.Name(), path: filepath.Join(ownerDir, file.Name())}
			if i, ok := index[found.name]; ok {
				log.Warn().
					Str("file", found.name).
					Str("replaced", entries[i].path).
					Str("by", found.path).
					Msg("Duplicate filename in verified folders")
				entries[i] = found
				continue
			}
			index[found.name] = len(entries)
			entries = append(entries, found)
		}
	}
	return entries, nil
}

func (e *Exporter) write(w io.Writer, entries []entry) error {
	zw := NewZipWriter(w, e.level)
	for _, en := range entries {
		if err := zw.AddFile(en.path, en.name); err != nil {
			return err
		}
	}
	return zw.Finalize()
}
