package eventstream

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNotFound: the stream does not exist or is soft-deleted.
	ErrNotFound = errors.New("resource not found")
	// ErrSubResourceNotFound: the stream exists but the addressed sink or
	// subscribable does not.
	ErrSubResourceNotFound = errors.New("sub-resource not found")
	// ErrConflict: the operation would break a uniqueness or state invariant.
	ErrConflict = errors.New("resource conflict")
	// ErrUnderConstruction: the target is still being created; retry later.
	ErrUnderConstruction = errors.New("resource under construction")
	// ErrUnderDeletion: a resource of the same identity is still being deleted; retry later.
	ErrUnderDeletion = errors.New("resource under deletion")
	// ErrParentNotReady: the stream must be ACTIVE first. It also matches ErrConflict.
	ErrParentNotReady = parentNotReady{}

	// ErrNoRecord is returned by a Store when no version exists for an id.
	ErrNoRecord = errors.New("no record")
	// ErrVersionConflict is returned by a Store when the expected version is
	// no longer the latest.
	ErrVersionConflict = errors.New("config version conflict")
)

type parentNotReady struct{}

func (parentNotReady) Error() string { return "parent resource not ready" }

// Is makes ErrParentNotReady a refinement of ErrConflict.
func (parentNotReady) Is(target error) bool { return target == ErrConflict }

// ValidationError rejects malformed input before any lifecycle invariant is checked.
type ValidationError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

// HTTPStatus maps an error from this package's taxonomy onto an HTTP status
// code for the API layer.
func HTTPStatus(err error) int {
	var verr *ValidationError
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &verr):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrSubResourceNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict), errors.Is(err, ErrUnderConstruction), errors.Is(err, ErrUnderDeletion),
		errors.Is(err, ErrVersionConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
