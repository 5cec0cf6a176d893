package asset

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/prappser/gallery_server/internal/apperr"
)

const (
	DefaultPage     = 1
	DefaultPageSize = 5
)

// Listing enumerates a live directory snapshot. Concurrent writers may shift
// page boundaries between calls.
type Listing struct {
	store *Store
}

func NewListing(store *Store) *Listing {
	return &Listing{store: store}
}

// Count returns the number of entries in every owner folder of a state, plus
// the total under AllOwners. Entries are counted without extension filtering.
func (l *Listing) Count(state string) (map[string]int, error) {
	parsed, err := ParseState(state)
	if err != nil {
		return nil, err
	}

	owners, err := l.owners(parsed)
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int, len(owners)+1)
	total := 0
	for _, owner := range owners {
		entries, err := os.ReadDir(l.store.OwnerDir(parsed, owner))
		if err != nil {
			return nil, apperr.IO(err, "failed to scan folder %q", owner)
		}
		counts[owner] = len(entries)
		total += len(entries)
	}
	counts[AllOwners] = total

	return counts, nil
}

// List returns one page of image assets for an owner, or for every owner when
// owner is AllOwners. Owners and files come in lexical order.
func (l *Listing) List(state, owner string, page, pageSize int) ([]Asset, error) {
	parsed, err := ParseState(state)
	if err != nil {
		return nil, err
	}
	owner = Normalize(owner)
	if err := ValidateSegment("student name", owner); err != nil {
		return nil, err
	}

	var images []Asset
	if owner == AllOwners {
		owners, err := l.owners(parsed)
		if err != nil {
			return nil, err
		}
		for _, o := range owners {
			ownerImages, err := l.images(parsed, o)
			if apperr.Is(err, apperr.KindNotFound) {
				// removed since the state folder was read
				continue
			}
			if err != nil {
				return nil, err
			}
			images = append(images, ownerImages...)
		}
	} else {
		if err := l.store.requireDir(l.store.StateDir(parsed), "%s folder does not exist", parsed); err != nil {
			return nil, err
		}
		if err := l.store.requireDir(l.store.OwnerDir(parsed, owner), "student folder %q does not exist", owner); err != nil {
			return nil, err
		}
		images, err = l.images(parsed, owner)
		if err != nil {
			return nil, err
		}
	}

	return Paginate(images, page, pageSize), nil
}

// Paginate slices items to the 1-indexed page. Pages past the end are empty.
func Paginate[T any](items []T, page, pageSize int) []T {
	if page < 1 {
		page = DefaultPage
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}

	// compare page indexes before multiplying so huge values cannot overflow
	if len(items) == 0 || page-1 > (len(items)-1)/pageSize {
		return []T{}
	}
	start := (page - 1) * pageSize
	return items[start : start+min(len(items)-start, pageSize)]
}

// ParsePage reads page and limit values, falling back to the defaults when a
// value is absent, non-numeric or not positive.
func ParsePage(pageRaw, limitRaw string) (page, pageSize int) {
	page = parsePositive(pageRaw, DefaultPage)
	pageSize = parsePositive(limitRaw, DefaultPageSize)
	return page, pageSize
}

func parsePositive(raw string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 1 {
		return fallback
	}
	return n
}

func (l *Listing) owners(state State) ([]string, error) {
	entries, err := os.ReadDir(l.store.StateDir(state))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, apperr.NotFound("%s folder does not exist", state)
		}
		return nil, apperr.IO(err, "failed to scan %s folder", state)
	}

	owners := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			owners = append(owners, entry.Name())
		}
	}
	return owners, nil
}

func (l *Listing) images(state State, owner string) ([]Asset, error) {
	entries, err := os.ReadDir(l.store.OwnerDir(state, owner))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, apperr.NotFound("student folder %q does not exist", owner)
		}
		return nil, apperr.IO(err, "failed to scan folder %q", owner)
	}

	images := make([]Asset, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !IsImage(entry.Name()) {
			continue
		}
		images = append(images, Asset{State: state, Owner: owner, Filename: entry.Name()})
	}
	return images, nil
}
