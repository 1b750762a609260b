package service

import "errors"

// DeserializationError wraps a failure to decode a notice or its event body.
// It is never retryable: redelivering the same bytes will fail the same
// way, so the AMQP handler acks (drops) rather than nacking for redelivery.
type DeserializationError struct {
	cause error
}

func NewDeserializationError(cause error) *DeserializationError {
	return &DeserializationError{cause: cause}
}

func (e *DeserializationError) Error() string { return "deserialization: " + e.cause.Error() }
func (e *DeserializationError) Unwrap() error { return e.cause }

// IsDeserializationError reports whether err (or something it wraps) is a
// DeserializationError.
func IsDeserializationError(err error) bool {
	var target *DeserializationError
	return errors.As(err, &target)
}
