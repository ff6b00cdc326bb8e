package rest

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"marketplace-chat/auth"
	"marketplace-chat/domain/chat"
	"marketplace-chat/errors"
	"marketplace-chat/observability"
	"marketplace-chat/services"

	"github.com/google/uuid"
	muxHandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/samber/lo"
)

// Dependencies groups what the HTTP surface serves. Inspector is only set at DEBUG level.
type Dependencies struct {
	Auth           services.IAuthService
	Chat           services.IChatService
	Hub            http.Handler
	Issuer         *auth.TokenIssuer
	Metrics        *observability.Metrics
	Gatherer       prometheus.Gatherer
	Inspector      http.Handler
	AllowedOrigins []string
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type MessageDTO struct {
	ID          string    `json:"id"`
	SenderID    string    `json:"sender_id"`
	RecipientID string    `json:"recipient_id"`
	ListingID   string    `json:"listing_id"`
	Body        string    `json:"body"`
	CreatedAt   time.Time `json:"created_at"`
}

type searchResponse struct {
	Total    uint64       `json:"total"`
	Messages []MessageDTO `json:"messages"`
}

func toMessageDTO(m chat.Message, _ int) MessageDTO {
	return MessageDTO{
		ID:          m.ID.String(),
		SenderID:    m.SenderID.String(),
		RecipientID: m.RecipientID.String(),
		ListingID:   m.ListingID.String(),
		Body:        m.Body,
		CreatedAt:   m.CreatedAt,
	}
}

type handler struct {
	log  *slog.Logger
	deps Dependencies
}

// NewRouter exposes the hub, the account and history endpoints and the operations surface.
func NewRouter(log *slog.Logger, deps Dependencies) http.Handler {
	h := handler{log: log, deps: deps}
	r := mux.NewRouter()
	requireAuth := auth.Middleware(deps.Issuer, log)

	r.Handle("/hubs/chat", deps.Hub).Methods(http.MethodGet)

	r.HandleFunc("/api/auth/register", h.register).Methods(http.MethodPost)
	r.HandleFunc("/api/auth/login", h.login).Methods(http.MethodPost)
	r.Handle("/api/conversations/{listingId}/{userId}", requireAuth(http.HandlerFunc(h.conversation))).Methods(http.MethodGet)
	r.Handle("/api/messages/search", requireAuth(http.HandlerFunc(h.search))).Methods(http.MethodGet)

	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("OK"))
	}).Methods(http.MethodGet)
	r.HandleFunc("/api/monitoring", h.monitoring).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	if deps.Inspector != nil {
		r.Handle("/debug/inspect", deps.Inspector).Methods(http.MethodGet)
	}

	origins := deps.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	cors := muxHandlers.CORS(
		muxHandlers.AllowedOrigins(origins),
		muxHandlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
		muxHandlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
	)
	return muxHandlers.RecoveryHandler(muxHandlers.PrintRecoveryStack(false))(cors(r))
}

func (h handler) register(w http.ResponseWriter, r *http.Request) {
	var body credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.writeError(w, errors.ErrInvalidRequest)
		return
	}
	session, err := h.deps.Auth.Register(body.Email, body.Password)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, session)
}

func (h handler) login(w http.ResponseWriter, r *http.Request) {
	var body credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.writeError(w, errors.ErrInvalidRequest)
		return
	}
	session, err := h.deps.Auth.Login(body.Email, body.Password)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (h handler) conversation(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.caller(w, r)
	if !ok {
		return
	}
	vars := mux.Vars(r)
	messages, err := h.deps.Chat.History(r.Context(), userID, vars["listingId"], vars["userId"])
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lo.Map(messages, toMessageDTO))
}

func (h handler) search(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.caller(w, r)
	if !ok {
		return
	}
	messages, total, err := h.deps.Chat.Search(r.Context(), userID, r.URL.Query().Get("q"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, searchResponse{Total: total, Messages: lo.Map(messages, toMessageDTO)})
}

func (h handler) monitoring(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.deps.Metrics.GetLatest())
}

// caller resolves the identity of an authenticated request.
func (h handler) caller(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		h.writeError(w, errors.ErrUnauthorized)
		return uuid.Nil, false
	}
	userID, ok := chat.ParseIdentifier(claims.UserID)
	if !ok {
		h.writeError(w, errors.ErrUnauthorized)
		return uuid.Nil, false
	}
	return userID, true
}

func (h handler) writeError(w http.ResponseWriter, err error) {
	status := errors.HTTPStatus(err)
	if status == http.StatusInternalServerError {
		h.log.Error("Request failed", "error", err)
	}
	writeJSON(w, status, map[string]string{"error": errors.PublicMessage(err)})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
