package asset

import (
	"net/url"
	"path/filepath"
	"strings"

	"github.com/prappser/gallery_server/internal/apperr"
)

type State string

const (
	StateUploaded State = "uploaded"
	StateVerified State = "verified"
	StateDeleted  State = "deleted"
)

var States = []State{StateUploaded, StateVerified, StateDeleted}

type Action string

const (
	ActionVerify Action = "verify"
	ActionDelete Action = "delete"
)

// AllOwners is the pseudo-owner that aggregates every owner folder of a state.
const AllOwners = "all"

type Asset struct {
	State    State  `json:"state"`
	Owner    string `json:"owner"`
	Filename string `json:"filename"`
}

// URL is the escaped image route for a. The router sees the decoded path,
// which ParsePath turns back into a.
func (a Asset) URL() string {
	return "/images/" + string(a.State) + "/" + url.PathEscape(a.Owner) + "/" + url.PathEscape(a.Filename)
}

func (a Asset) MediaType() string {
	mediaType, _ := MediaTypeOf(a.Filename)
	return mediaType
}

var mediaTypes = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".webp": "image/webp",
}

func MediaTypeOf(filename string) (string, bool) {
	mediaType, ok := mediaTypes[strings.ToLower(filepath.Ext(filename))]
	return mediaType, ok
}

func IsImage(filename string) bool {
	_, ok := MediaTypeOf(filename)
	return ok
}

// Normalize folds owner and file names to their stored form: lower-case with
// spaces replaced by underscores.
func Normalize(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), " ", "_")
}

// ValidateSegment rejects values that cannot be used as a single path
// component below a state folder.
func ValidateSegment(what, s string) error {
	switch {
	case s == "":
		return apperr.Invalid("%s is required", what)
	case s == "." || s == "..":
		return apperr.Invalid("%s %q is not allowed", what, s)
	case strings.ContainsAny(s, "/\\\x00"):
		return apperr.Invalid("%s %q must not contain path separators", what, s)
	}
	return nil
}

func ParseState(s string) (State, error) {
	state := State(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range States {
		if state == known {
			return state, nil
		}
	}
	if state == "" {
		return "", apperr.Invalid(`folder type is required ("uploaded", "verified" or "deleted")`)
	}
	return "", apperr.Invalid(`folder %q must be "uploaded", "verified" or "deleted"`, s)
}

func ParseAction(s string) (Action, error) {
	action := Action(strings.ToLower(strings.TrimSpace(s)))
	switch action {
	case ActionVerify, ActionDelete:
		return action, nil
	default:
		return "", apperr.Invalid(`action must be "verify" or "delete"`)
	}
}

// Target is the state an asset lands in after the action.
func (a Action) Target() State {
	if a == ActionVerify {
		return StateVerified
	}
	return StateDeleted
}

// CheckTransition enforces the transition table: an asset can be verified from
// anywhere but verified, and deleted from anywhere but deleted.
func CheckTransition(origin State, action Action) error {
	if origin == action.Target() {
		return apperr.Invalid("cannot %s an asset that is already %s", action, origin)
	}
	return nil
}

// ParsePath resolves a delivery path of the form
// /images/{state}/{owner}/{file} into an asset reference.
func ParsePath(p string) (Asset, error) {
	rest := strings.TrimPrefix(p, "/")
	rest = strings.TrimPrefix(rest, "images/")
	parts := strings.Split(rest, "/")
	if len(parts) != 3 {
		return Asset{}, apperr.Invalid("image path %q must be /images/{state}/{owner}/{file}", p)
	}
	state, err := ParseState(parts[0])
	if err != nil {
		return Asset{}, err
	}
	if err := ValidateSegment("folder name", parts[1]); err != nil {
		return Asset{}, err
	}
	if err := ValidateSegment("file name", parts[2]); err != nil {
		return Asset{}, err
	}
	return Asset{State: state, Owner: parts[1], Filename: parts[2]}, nil
}
