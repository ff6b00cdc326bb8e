package rest

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"marketplace-chat/auth"
	"marketplace-chat/domain/chat"
	"marketplace-chat/errors"
	"marketplace-chat/mocks"
	"marketplace-chat/observability"

	"github.com/google/uuid"
	"github.com/mama165/sdk-go/logs"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

const testSecret = "a-test-secret-long-enough-for-hs256"

type fixture struct {
	router  http.Handler
	auth    *mocks.MockIAuthService
	chat    *mocks.MockIChatService
	issuer  *auth.TokenIssuer
	metrics *observability.Metrics
}

func newFixture(t *testing.T, inspector http.Handler) fixture {
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	registry := prometheus.NewRegistry()
	f := fixture{
		auth:    mocks.NewMockIAuthService(ctrl),
		chat:    mocks.NewMockIChatService(ctrl),
		issuer:  auth.NewTokenIssuer(testSecret, time.Hour),
		metrics: observability.NewMetrics(registry),
	}
	f.router = NewRouter(log, Dependencies{
		Auth:      f.auth,
		Chat:      f.chat,
		Hub:       http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusTeapot) }),
		Issuer:    f.issuer,
		Metrics:   f.metrics,
		Gatherer:  registry,
		Inspector: inspector,
	})
	return f
}

func (f fixture) bearer(t *testing.T, userID uuid.UUID) string {
	token, _, err := f.issuer.GenerateToken(userID.String(), []string{"user"})
	require.NoError(t, err)
	return "Bearer " + token
}

func (f fixture) do(r *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, r)
	return w
}

func TestRouter_Register(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"created", nil, http.StatusCreated},
		{"weak password", errors.ErrInvalidPassword, http.StatusBadRequest},
		{"duplicate email", errors.ErrUserAlreadyExists, http.StatusConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			f := newFixture(t, nil)
			f.auth.EXPECT().Register("dealer@example.com", "ComplexPass123!").
				Return(auth.Session{Token: "jwt", UserID: uuid.NewString()}, tt.err).Times(1)

			w := f.do(httptest.NewRequest(http.MethodPost, "/api/auth/register",
				strings.NewReader(`{"email":"dealer@example.com","password":"ComplexPass123!"}`)))

			req.Equal(tt.status, w.Code)
		})
	}
}

func TestRouter_Login_Hides_Internal_Errors(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, nil)
	f.auth.EXPECT().Login(gomock.Any(), gomock.Any()).Return(auth.Session{}, errors.ErrTokenGeneration).Times(1)

	w := f.do(httptest.NewRequest(http.MethodPost, "/api/auth/login",
		strings.NewReader(`{"email":"dealer@example.com","password":"ComplexPass123!"}`)))

	req.Equal(http.StatusInternalServerError, w.Code)
	req.JSONEq(`{"error":"Internal server error"}`, w.Body.String())
}

func TestRouter_Login_Rejects_Malformed_Body(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, nil)

	w := f.do(httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader("{")))

	req.Equal(http.StatusBadRequest, w.Code)
}

func TestRouter_Conversation(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, nil)
	userID, otherID, listingID := uuid.New(), uuid.New(), uuid.New()
	msg := chat.Message{
		ID:          uuid.New(),
		SenderID:    otherID,
		RecipientID: userID,
		ListingID:   listingID,
		Body:        "Price is firm",
		CreatedAt:   time.Now().UTC(),
	}

	// Given the caller's history with the other user
	f.chat.EXPECT().History(gomock.Any(), userID, listingID.String(), otherID.String()).
		Return([]chat.Message{msg}, nil).Times(1)

	// When the caller asks for the conversation
	r := httptest.NewRequest(http.MethodGet, "/api/conversations/"+listingID.String()+"/"+otherID.String(), nil)
	r.Header.Set("Authorization", f.bearer(t, userID))
	w := f.do(r)

	// Then the messages are returned as DTOs
	req.Equal(http.StatusOK, w.Code)
	var dtos []MessageDTO
	req.NoError(json.Unmarshal(w.Body.Bytes(), &dtos))
	req.Len(dtos, 1)
	req.Equal(msg.ID.String(), dtos[0].ID)
	req.Equal("Price is firm", dtos[0].Body)
}

func TestRouter_Conversation_Requires_Token(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, nil)

	w := f.do(httptest.NewRequest(http.MethodGet, "/api/conversations/"+uuid.NewString()+"/"+uuid.NewString(), nil))

	req.Equal(http.StatusUnauthorized, w.Code)
}

func TestRouter_Search(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, nil)
	userID := uuid.New()
	f.chat.EXPECT().Search(gomock.Any(), userID, "civic").
		Return([]chat.Message{{ID: uuid.New(), Body: "civic 2019"}}, uint64(4), nil).Times(1)

	r := httptest.NewRequest(http.MethodGet, "/api/messages/search?q=civic", nil)
	r.Header.Set("Authorization", f.bearer(t, userID))
	w := f.do(r)

	req.Equal(http.StatusOK, w.Code)
	var resp searchResponse
	req.NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	req.Equal(uint64(4), resp.Total)
	req.Len(resp.Messages, 1)
}

func TestRouter_Operations_Surface(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, nil)
	f.metrics.MessagesPersisted.Inc()

	w := f.do(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	req.Equal(http.StatusOK, w.Code)
	req.Equal("OK", w.Body.String())

	w = f.do(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	req.Equal(http.StatusOK, w.Code)
	req.Contains(w.Body.String(), "messages_persisted_total")

	w = f.do(httptest.NewRequest(http.MethodGet, "/api/monitoring", nil))
	req.Equal(http.StatusOK, w.Code)

	// Hub endpoint is delegated
	w = f.do(httptest.NewRequest(http.MethodGet, "/hubs/chat", nil))
	req.Equal(http.StatusTeapot, w.Code)

	// Inspector is absent unless provided
	w = f.do(httptest.NewRequest(http.MethodGet, "/debug/inspect", nil))
	req.Equal(http.StatusNotFound, w.Code)
}

func TestRouter_Mounts_Inspector(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("inspector"))
	}))

	w := f.do(httptest.NewRequest(http.MethodGet, "/debug/inspect", nil))

	req.Equal("inspector", w.Body.String())
}
