package auth

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"marketplace-chat/errors"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

const testSecret = "a-test-secret-long-enough-for-hs256"

func TestHashAndCompare(t *testing.T) {
	req := require.New(t)
	password := "Sup3rSecret!Dealer"

	hash, err := HashPassword(password)
	req.NoError(err)
	req.True(strings.HasPrefix(hash, "$argon2id$"))

	match, err := ComparePassword(password, hash)
	req.NoError(err)
	req.True(match)

	// Wrong password
	match, err = ComparePassword("WrongPassword1!", hash)
	req.NoError(err)
	req.False(match)

	// Corrupted hash
	_, err = ComparePassword(password, "$argon2id$broken")
	req.Error(err)
}

func TestRegistrationValidation(t *testing.T) {
	tests := []struct {
		name     string
		req      RegisterRequest
		expected error
	}{
		{"Valid request", RegisterRequest{"test@example.com", "ComplexPass123!"}, nil},
		{"Invalid email", RegisterRequest{"notanemail", "ComplexPass123!"}, errors.ErrInvalidRequest},
		{"Password too short", RegisterRequest{"test@example.com", "Short1!"}, errors.ErrInvalidRequest},
		{"Missing digit", RegisterRequest{"test@example.com", "NoDigitPass!"}, errors.ErrInvalidPassword},
		{"Missing special char", RegisterRequest{"test@example.com", "NoSpecialChar123"}, errors.ErrInvalidPassword},
		{"Missing uppercase", RegisterRequest{"test@example.com", "nouppercase123!"}, errors.ErrInvalidPassword},
		{"Password too long", RegisterRequest{"test@example.com", strings.Repeat("a", 73)}, errors.ErrInvalidRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRegister(tt.req)
			if tt.expected == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tt.expected)
		})
	}
}

func TestTokenIssuer_Generate_And_Validate(t *testing.T) {
	req := require.New(t)
	issuer := NewTokenIssuer(testSecret, time.Hour)
	userID := uuid.NewString()

	token, expiresAt, err := issuer.GenerateToken(userID, []string{"user"})
	req.NoError(err)
	req.WithinDuration(time.Now().Add(time.Hour), expiresAt, 5*time.Second)

	claims, err := issuer.ValidateToken(token)
	req.NoError(err)
	req.Equal(userID, claims.UserID)
	req.Equal([]string{"user"}, claims.Roles)
}

func TestTokenIssuer_Rejects_Invalid_Tokens(t *testing.T) {
	req := require.New(t)
	issuer := NewTokenIssuer(testSecret, time.Hour)
	userID := uuid.NewString()

	// Expired token
	expired := NewTokenIssuer(testSecret, time.Hour)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	token, _, err := expired.GenerateToken(userID, nil)
	req.NoError(err)
	_, err = issuer.ValidateToken(token)
	req.ErrorIs(err, errors.ErrInvalidToken)

	// Token signed with another secret
	token, _, err = NewTokenIssuer("another-secret-entirely-different", time.Hour).GenerateToken(userID, nil)
	req.NoError(err)
	_, err = issuer.ValidateToken(token)
	req.ErrorIs(err, errors.ErrInvalidToken)

	// Token using the none algorithm
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, &CustomClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "marketplace-chat",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	req.NoError(err)
	_, err = issuer.ValidateToken(unsigned)
	req.ErrorIs(err, errors.ErrInvalidToken)

	// Garbage
	_, err = issuer.ValidateToken("not-a-jwt")
	req.ErrorIs(err, errors.ErrInvalidToken)
}

func TestTokenFromRequest(t *testing.T) {
	tests := []struct {
		name     string
		header   string
		url      string
		expected string
		err      error
	}{
		{"bearer header", "Bearer abc.def.ghi", "/hubs/chat", "abc.def.ghi", nil},
		{"query parameter", "", "/hubs/chat?access_token=abc.def.ghi", "abc.def.ghi", nil},
		{"header wins", "Bearer from-header", "/hubs/chat?access_token=from-query", "from-header", nil},
		{"wrong scheme", "Basic dXNlcjpwYXNz", "/hubs/chat", "", errors.ErrMissingToken},
		{"missing", "", "/hubs/chat", "", errors.ErrMissingToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			r := httptest.NewRequest(http.MethodGet, tt.url, nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}

			token, err := TokenFromRequest(r)

			if tt.err != nil {
				req.ErrorIs(err, tt.err)
				return
			}
			req.NoError(err)
			req.Equal(tt.expected, token)
		})
	}
}

func TestMiddleware(t *testing.T) {
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	issuer := NewTokenIssuer(testSecret, time.Hour)
	userID := uuid.NewString()
	token, _, err := issuer.GenerateToken(userID, []string{"user"})
	require.NoError(t, err)

	var seen string
	handler := Middleware(issuer, log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFromContext(r.Context())
		require.True(t, ok)
		seen = claims.UserID
		w.WriteHeader(http.StatusNoContent)
	}))

	t.Run("valid token reaches the handler", func(t *testing.T) {
		req := require.New(t)
		r := httptest.NewRequest(http.MethodGet, "/api/messages/search?q=civic", nil)
		r.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, r)

		req.Equal(http.StatusNoContent, w.Code)
		req.Equal(userID, seen)
	})

	t.Run("missing token is rejected", func(t *testing.T) {
		req := require.New(t)
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/messages/search", nil))

		req.Equal(http.StatusUnauthorized, w.Code)
		req.JSONEq(`{"error":"Unauthorized"}`, w.Body.String())
	})
}

func BenchmarkHashPassword(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_, _ = HashPassword("A-very-long-and-complex-password-for-bench-123!")
	}
}
