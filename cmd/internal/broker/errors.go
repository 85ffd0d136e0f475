package broker

import "errors"

var (
	// ErrStorageWrite is returned when a message insert did not take effect.
	ErrStorageWrite = errors.New("message insert did not take effect")

	// ErrNilStore is returned when a service or store is used before wiring.
	ErrNilStore = errors.New("broker: nil store")
)

// ValidationError reports the first ingestion rule a submitted message
// violates. It is user-correctable and safe to surface verbatim.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
