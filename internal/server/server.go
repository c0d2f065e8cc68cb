package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/mwilkes/basket/internal/auth"
	"github.com/mwilkes/basket/internal/email"
	"github.com/mwilkes/basket/internal/handler"
	"github.com/mwilkes/basket/internal/middleware"
	"github.com/mwilkes/basket/internal/permission"
	"github.com/mwilkes/basket/internal/store"
	ws "github.com/mwilkes/basket/internal/websocket"
)

type Server struct {
	db          *sql.DB
	hub         *ws.Hub
	tokens      *auth.TokenService
	authH       *handler.AuthHandler
	listH       *handler.ListHandler
	itemH       *handler.ItemHandler
	collabH     *handler.CollaboratorHandler
	shareH      *handler.ShareHandler
	rateLimiter *middleware.RateLimiter
	logger      *slog.Logger
}

func New(db *sql.DB, tokens *auth.TokenService, emailClient *email.Client, baseURL string, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))

	userStore := store.NewUserStore(db)
	listStore := store.NewListStore(db)
	itemStore := store.NewItemStore(db)
	collabStore := store.NewCollaboratorStore(db)
	invitationStore := store.NewInvitationStore(db)
	linkStore := store.NewSharedLinkStore(db)

	perms := permission.NewService(listStore, collabStore)
	pub := handler.NewPublisher(hub, collabStore, logger.With("component", "feed"))

	return &Server{
		db:          db,
		hub:         hub,
		tokens:      tokens,
		authH:       handler.NewAuthHandler(userStore, tokens, logger.With("component", "auth")),
		listH:       handler.NewListHandler(listStore, itemStore, perms, pub, logger.With("component", "list")),
		itemH:       handler.NewItemHandler(itemStore, perms, pub, logger.With("component", "item")),
		collabH:     handler.NewCollaboratorHandler(listStore, userStore, collabStore, invitationStore, perms, emailClient, pub, logger.With("component", "collaborator")),
		shareH:      handler.NewShareHandler(listStore, itemStore, linkStore, baseURL, logger.With("component", "share")),
		rateLimiter: middleware.NewRateLimiter(),
		logger:      logger,
	}
}

// Hub returns the websocket hub for shutdown and introspection.
func (s *Server) Hub() *ws.Hub {
	return s.hub
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	// Public routes (no auth required)
	outerMux.HandleFunc("POST /auth/register", s.rateLimitedHandler(s.authH.Register))
	outerMux.HandleFunc("POST /auth/login", s.rateLimitedHandler(s.authH.Login))
	outerMux.HandleFunc("GET /shared-lists/{token}", s.shareH.View)
	outerMux.HandleFunc("GET /health", s.healthHandler)

	// The websocket handler does its own bearer check so browser clients can
	// pass the token as a query parameter.
	outerMux.HandleFunc("GET /ws", ws.Handle(s.hub, s.tokens, s.logger.With("component", "websocket")))

	// Protected routes — wrapped with RequireAuth middleware
	protectedMux := http.NewServeMux()
	s.registerProtectedRoutes(protectedMux)

	authMiddleware := middleware.RequireAuth(s.tokens)
	outerMux.Handle("/api/", authMiddleware(protectedMux))

	return middleware.RequestLogger(s.logger.With("component", "http"))(outerMux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) rateLimitedHandler(h http.HandlerFunc) http.HandlerFunc {
	keyFunc := func(r *http.Request) string {
		return middleware.RealIP(r)
	}
	rl := middleware.RateLimit(s.rateLimiter, keyFunc, 10, time.Minute)
	return func(w http.ResponseWriter, r *http.Request) {
		rl(http.HandlerFunc(h)).ServeHTTP(w, r)
	}
}

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	// List routes
	mux.HandleFunc("POST /api/lists", s.listH.Create)
	mux.HandleFunc("GET /api/lists", s.listH.List)
	mux.HandleFunc("GET /api/lists/{list_id}", s.listH.Get)
	mux.HandleFunc("PUT /api/lists/{list_id}", s.listH.Update)
	mux.HandleFunc("DELETE /api/lists/{list_id}", s.listH.Delete)
	mux.HandleFunc("POST /api/lists/{list_id}/archive", s.listH.Archive)
	mux.HandleFunc("POST /api/lists/{list_id}/unarchive", s.listH.Unarchive)
	mux.HandleFunc("POST /api/lists/{list_id}/complete", s.listH.Complete)
	mux.HandleFunc("GET /api/summary", s.listH.Summary)

	// Item routes
	mux.HandleFunc("POST /api/lists/{list_id}/items", s.itemH.Create)
	mux.HandleFunc("GET /api/lists/{list_id}/items", s.itemH.List)
	mux.HandleFunc("PUT /api/lists/{list_id}/items/{id}", s.itemH.Update)
	mux.HandleFunc("DELETE /api/lists/{list_id}/items/{id}", s.itemH.Delete)
	mux.HandleFunc("POST /api/lists/{list_id}/items/{id}/purchase", s.itemH.TogglePurchased)

	// Collaborator routes
	mux.HandleFunc("POST /api/lists/{list_id}/collaborators", s.collabH.Invite)
	mux.HandleFunc("GET /api/lists/{list_id}/collaborators", s.collabH.List)
	mux.HandleFunc("PUT /api/lists/{list_id}/collaborators/{user_id}", s.collabH.UpdateRole)
	mux.HandleFunc("DELETE /api/lists/{list_id}/collaborators/{user_id}", s.collabH.Remove)
	mux.HandleFunc("POST /api/lists/{list_id}/leave", s.collabH.Leave)

	// Invitation routes
	mux.HandleFunc("GET /api/invitations", s.collabH.Invitations)
	mux.HandleFunc("POST /api/invitations/{id}/accept", s.collabH.Accept)

	// Share routes
	mux.HandleFunc("POST /api/lists/{list_id}/share", s.shareH.Create)
	mux.HandleFunc("DELETE /api/lists/{list_id}/share", s.shareH.Revoke)
}
