package domain

import "errors"

// Error kinds. Every error returned by the core wraps exactly one of these so
// the transport layer can map it with errors.Is.
var (
	ErrValidation      = errors.New("validation failed")
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("access forbidden")
	ErrPersistence     = errors.New("persistence failure")
)

var (
	ErrUserNotFound   = newError(ErrNotFound, "user not found")
	ErrStoreNotFound  = newError(ErrNotFound, "store not found")
	ErrRatingNotFound = newError(ErrNotFound, "rating not found")

	ErrEmailTaken      = newError(ErrConflict, "user with this email already exists")
	ErrStoreEmailTaken = newError(ErrConflict, "store with this email already exists")
	ErrAlreadyOwner    = newError(ErrConflict, "user already owns a store")
	ErrDuplicateRating = newError(ErrConflict, "rating already exists for this store")

	ErrInvalidCredentials = newError(ErrUnauthenticated, "invalid email or password")
	ErrInvalidToken       = newError(ErrUnauthenticated, "invalid token")

	ErrInvalidRating  = newError(ErrValidation, "rating must be between 1 and 5")
	ErrCommentTooLong = newError(ErrValidation, "comment must be at most 500 characters")
	ErrInvalidRole    = newError(ErrValidation, "role must be one of: user, store_owner, admin")
)

// kindError carries a client-facing message and unwraps to its kind.
type kindError struct {
	kind error
	msg  string
}

func newError(kind error, msg string) error {
	return &kindError{kind: kind, msg: msg}
}

func (e *kindError) Error() string { return e.msg }

func (e *kindError) Unwrap() error { return e.kind }

// Invalid returns a validation error with the given message.
func Invalid(msg string) error { return newError(ErrValidation, msg) }

// Forbidden returns a permission error with the given message.
func Forbidden(msg string) error { return newError(ErrForbidden, msg) }

// IsExpected reports whether err belongs to a client-facing kind, i.e. anything
// other than a persistence or unclassified failure.
func IsExpected(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrConflict) ||
		errors.Is(err, ErrUnauthenticated) ||
		errors.Is(err, ErrForbidden)
}
