package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

var (
	ErrWorkerPanic = fmt.Errorf("worker panic")
	ErrEmptyWords  = fmt.Errorf("no words have been found")

	// ErrUnauthorized is returned when a connection carries no trusted identity.
	ErrUnauthorized = fmt.Errorf("Unauthorized")

	// ErrMalformedIdentifier is the parent of every identifier parsing failure.
	ErrMalformedIdentifier = fmt.Errorf("malformed identifier")
	ErrInvalidSenderID     = identifierError("Invalid sender ID")
	ErrInvalidRecipientID  = identifierError("Invalid recipient ID")
	ErrInvalidListingID    = identifierError("Invalid listing ID")

	// ErrPersistenceFailure means the durable write did not succeed and nothing was delivered.
	ErrPersistenceFailure = fmt.Errorf("Message could not be saved")

	ErrConnectionClosed = fmt.Errorf("connection closed")
	ErrBackpressure     = fmt.Errorf("connection send buffer is full")
	ErrRateLimited      = fmt.Errorf("Rate limit exceeded")
	ErrUnknownTarget    = fmt.Errorf("Unknown method")
	ErrInvalidArguments = fmt.Errorf("Invalid arguments")
	ErrInvalidFrame     = fmt.Errorf("Invalid message format")

	ErrInvalidRequest     = fmt.Errorf("invalid request")
	ErrInvalidPassword    = fmt.Errorf("password does not meet complexity requirements")
	ErrUserAlreadyExists  = fmt.Errorf("user already exists")
	ErrInvalidCredentials = fmt.Errorf("invalid email or password")
	ErrTokenGeneration    = fmt.Errorf("token generation failed")
	ErrInvalidToken       = fmt.Errorf("invalid or expired token")
	ErrMissingToken       = fmt.Errorf("authorization token is missing")
)

const internalFault = "Internal server error"

type identifierError string

func (e identifierError) Error() string { return string(e) }

func (e identifierError) Is(target error) bool {
	return target == ErrMalformedIdentifier
}

// faults lists the errors whose text is safe to send back to a caller as is.
var faults = []error{
	ErrUnauthorized,
	ErrInvalidSenderID,
	ErrInvalidRecipientID,
	ErrInvalidListingID,
	ErrPersistenceFailure,
	ErrRateLimited,
	ErrUnknownTarget,
	ErrInvalidArguments,
	ErrInvalidFrame,
}

// FaultMessage converts an error raised while serving a hub invocation into
// the text reported to the calling connection.
func FaultMessage(err error) string {
	if err == nil {
		return ""
	}
	for _, fault := range faults {
		if stderrors.Is(err, fault) {
			return fault.Error()
		}
	}
	if stderrors.Is(err, ErrMalformedIdentifier) {
		return ErrMalformedIdentifier.Error()
	}
	return internalFault
}

// HTTPStatus maps service errors to the status code used by the REST surface.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case stderrors.Is(err, ErrInvalidRequest),
		stderrors.Is(err, ErrInvalidPassword),
		stderrors.Is(err, ErrMalformedIdentifier):
		return http.StatusBadRequest
	case stderrors.Is(err, ErrInvalidCredentials),
		stderrors.Is(err, ErrInvalidToken),
		stderrors.Is(err, ErrMissingToken),
		stderrors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case stderrors.Is(err, ErrUserAlreadyExists):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage hides internal failures from REST clients.
func PublicMessage(err error) string {
	if HTTPStatus(err) == http.StatusInternalServerError {
		return internalFault
	}
	return err.Error()
}
