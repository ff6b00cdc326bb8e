package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIdentifierErrors_AreMalformedIdentifier(t *testing.T) {
	req := require.New(t)
	for _, err := range []error{ErrInvalidSenderID, ErrInvalidRecipientID, ErrInvalidListingID} {
		req.ErrorIs(err, ErrMalformedIdentifier)
	}
	req.NotErrorIs(ErrUnauthorized, ErrMalformedIdentifier)
	req.NotErrorIs(ErrInvalidSenderID, ErrInvalidRecipientID)
}

func TestFaultMessage(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{"nil", nil, ""},
		{"unauthorized", ErrUnauthorized, "Unauthorized"},
		{"sender", ErrInvalidSenderID, "Invalid sender ID"},
		{"wrapped recipient", fmt.Errorf("route: %w", ErrInvalidRecipientID), "Invalid recipient ID"},
		{"listing", ErrInvalidListingID, "Invalid listing ID"},
		{"persistence", fmt.Errorf("%w: %v", ErrPersistenceFailure, stderrors.New("disk full")), "Message could not be saved"},
		{"internal", stderrors.New("badger: txn too big"), "Internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expected, FaultMessage(tt.err))
		})
	}
}

func TestHTTPStatus(t *testing.T) {
	req := require.New(t)
	req.Equal(http.StatusOK, HTTPStatus(nil))
	req.Equal(http.StatusBadRequest, HTTPStatus(fmt.Errorf("%w: too short", ErrInvalidPassword)))
	req.Equal(http.StatusBadRequest, HTTPStatus(ErrInvalidListingID))
	req.Equal(http.StatusUnauthorized, HTTPStatus(ErrInvalidCredentials))
	req.Equal(http.StatusConflict, HTTPStatus(ErrUserAlreadyExists))
	req.Equal(http.StatusInternalServerError, HTTPStatus(stderrors.New("boom")))
	req.Equal("Internal server error", PublicMessage(stderrors.New("boom")))
	req.Equal(ErrUserAlreadyExists.Error(), PublicMessage(ErrUserAlreadyExists))
}
