package miroir

import "errors"

// Validation errors: rejected before any side effect.
var (
	// ErrInvalidURL is returned when a clone target is not an http(s) URL.
	ErrInvalidURL = errors.New("miroir: invalid URL")

	// ErrInvalidPixelID is returned when a pixel id is not exactly 15 digits.
	ErrInvalidPixelID = errors.New("miroir: pixel id must be 15 digits")

	// ErrInvalidLocation is returned when a script location is neither
	// "head" nor "body".
	ErrInvalidLocation = errors.New("miroir: location must be head or body")

	// ErrInvalidHref is returned when a replacement href does not parse as
	// a URL.
	ErrInvalidHref = errors.New("miroir: invalid href")

	// ErrEmptyScript is returned when a script insertion carries no content.
	ErrEmptyScript = errors.New("miroir: empty script content")

	// ErrLinkIndexOutOfRange is returned when a link index does not address
	// an anchor in the current document.
	ErrLinkIndexOutOfRange = errors.New("miroir: link index out of range")
)

// Lookup and state errors.
var (
	// ErrNotFound is returned when a clone is absent or owned by another
	// user. The two cases are deliberately indistinguishable.
	ErrNotFound = errors.New("miroir: clone not found")

	// ErrScriptNotFound is returned when a script id is not tracked for
	// the clone.
	ErrScriptNotFound = errors.New("miroir: script not found")

	// ErrPixelAlreadySet is returned when injecting a pixel into a clone
	// that already has one. There is no silent replace.
	ErrPixelAlreadySet = errors.New("miroir: clone already has a pixel")

	// ErrNoPixelSet is returned when removing a pixel from a clone that
	// has none.
	ErrNoPixelSet = errors.New("miroir: clone has no pixel")
)

// Infrastructure errors.
var (
	// ErrFetchFailed is returned when the remote site is unreachable,
	// times out, or answers non-2xx.
	ErrFetchFailed = errors.New("miroir: upstream fetch failed")

	// ErrStorage is returned on artifact read/write failures.
	ErrStorage = errors.New("miroir: artifact storage failed")

	// ErrPersistFailed is returned when the registry write fails after the
	// artifact was already durably mutated. Callers should retry the whole
	// operation; pixel and script insertion are idempotent against the
	// already-written block.
	ErrPersistFailed = errors.New("miroir: registry persist failed after artifact write")
)
