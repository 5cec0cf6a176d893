package asset

import (
	"errors"
	"io"
	"io/fs"
	"os"

	"github.com/prappser/gallery_server/internal/apperr"
	"github.com/rs/zerolog/log"
)

// Manager moves assets between states. Every mutation is a single rename or
// remove, so an asset is always fully at exactly one path.
type Manager struct {
	store  *Store
	events EventPublisher
}

func NewManager(store *Store, events EventPublisher) *Manager {
	if events == nil {
		events = nopPublisher{}
	}
	return &Manager{
		store:  store,
		events: events,
	}
}

// Upload stores content as uploaded/{owner}/{filename}, replacing any file of
// the same name.
func (m *Manager) Upload(owner, filename string, content io.Reader) (*Asset, error) {
	owner = Normalize(owner)
	if err := ValidateSegment("folder name", owner); err != nil {
		return nil, err
	}
	if owner == AllOwners {
		return nil, apperr.Invalid("folder name %q is reserved", AllOwners)
	}
	filename = Normalize(filename)
	if err := ValidateSegment("file name", filename); err != nil {
		return nil, err
	}

	stored := Asset{State: StateUploaded, Owner: owner, Filename: filename}
	if err := os.MkdirAll(m.store.OwnerDir(stored.State, owner), 0755); err != nil {
		return nil, apperr.IO(err, "failed to create folder %q", owner)
	}

	tmp, err := os.CreateTemp(m.store.IncomingDir(), "upload-*")
	if err != nil {
		return nil, apperr.IO(err, "failed to create temporary file")
	}
	tmpPath := tmp.Name()

	if _, err := io.Copy(tmp, content); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return nil, apperr.IO(err, "failed to write file %q", filename)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return nil, apperr.IO(err, "failed to write file %q", filename)
	}
	if err := os.Rename(tmpPath, m.store.Path(stored)); err != nil {
		os.Remove(tmpPath)
		return nil, apperr.IO(err, "failed to save file %q", filename)
	}

	log.Info().
		Str("owner", owner).
		Str("file", filename).
		Msg("Asset uploaded")
	m.events.Publish(NewEvent(EventUploaded, stored))

	return &stored, nil
}

// Transition relocates an asset from origin to the state the action targets.
func (m *Manager) Transition(origin, owner, filename, action string) (*Asset, error) {
	parsedAction, err := ParseAction(action)
	if err != nil {
		return nil, err
	}
	source, err := m.locate(origin, owner, filename)
	if err != nil {
		return nil, err
	}
	if err := CheckTransition(source.State, parsedAction); err != nil {
		return nil, err
	}
	if _, err := m.store.Stat(source); err != nil {
		return nil, err
	}

	target := Asset{State: parsedAction.Target(), Owner: source.Owner, Filename: source.Filename}
	if err := os.MkdirAll(m.store.OwnerDir(target.State, target.Owner), 0755); err != nil {
		return nil, apperr.IO(err, "failed to create %s folder %q", target.State, target.Owner)
	}

	if err := os.Rename(m.store.Path(source), m.store.Path(target)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, apperr.NotFound("file %q does not exist", source.Filename)
		}
		log.Error().
			Err(err).
			Str("from", string(source.State)).
			Str("to", string(target.State)).
			Str("owner", source.Owner).
			Str("file", source.Filename).
			Msg("Failed to move asset")
		return nil, apperr.IO(err, "failed to move file to %s folder", target.State)
	}

	log.Info().
		Str("from", string(source.State)).
		Str("to", string(target.State)).
		Str("owner", target.Owner).
		Str("file", target.Filename).
		Msg("Asset transitioned")

	eventType := EventVerified
	if parsedAction == ActionDelete {
		eventType = EventDeleted
	}
	m.events.Publish(NewEvent(eventType, target))

	return &target, nil
}

// Purge erases an asset from a state. Unlike the delete action it does not
// relocate the file.
func (m *Manager) Purge(origin, owner, filename string) error {
	target, err := m.locate(origin, owner, filename)
	if err != nil {
		return err
	}
	if _, err := m.store.Stat(target); err != nil {
		return err
	}

	if err := os.Remove(m.store.Path(target)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return apperr.NotFound("file %q does not exist", target.Filename)
		}
		log.Error().
			Err(err).
			Str("state", string(target.State)).
			Str("owner", target.Owner).
			Str("file", target.Filename).
			Msg("Failed to purge asset")
		return apperr.IO(err, "failed to delete file %q", target.Filename)
	}

	log.Info().
		Str("state", string(target.State)).
		Str("owner", target.Owner).
		Str("file", target.Filename).
		Msg("Asset purged")
	m.events.Publish(NewEvent(EventPurged, target))

	return nil
}

func (m *Manager) locate(origin, owner, filename string) (Asset, error) {
	owner = Normalize(owner)
	filename = Normalize(filename)
	if owner == "" || filename == "" || origin == "" {
		return Asset{}, apperr.Invalid("origin folder, folder name and file name are required")
	}
	state, err := ParseState(origin)
	if err != nil {
		return Asset{}, err
	}
	if err := ValidateSegment("folder name", owner); err != nil {
		return Asset{}, err
	}
	if err := ValidateSegment("file name", filename); err != nil {
		return Asset{}, err
	}
	return Asset{State: state, Owner: owner, Filename: filename}, nil
}
