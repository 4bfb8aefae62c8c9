package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/vkuksa/supermarkets/internal/middleware"
	"github.com/vkuksa/supermarkets/internal/session"
)

// PageHandler serves the navigable pages. The pages themselves carry no
// logic; they exist as guard destinations. The login page is wrapped in
// the guest guard and the dashboard in the auth guard at registration
// time, so a navigation either renders the page or is redirected before
// it does.
type PageHandler struct {
	loginPath     string
	dashboardPath string
	logger        *zap.Logger
}

// NewPageHandler creates a new PageHandler instance.
func NewPageHandler(loginPath, dashboardPath string, logger *zap.Logger) *PageHandler {
	return &PageHandler{
		loginPath:     loginPath,
		dashboardPath: dashboardPath,
		logger:        logger,
	}
}

// RegisterRoutes registers the guarded pages with the router.
func (h *PageHandler) RegisterRoutes(router *mux.Router) {
	guest := middleware.RequireGuest(h.dashboardPath)
	auth := middleware.RequireAuth(h.loginPath)

	router.Handle(h.loginPath, guest(http.HandlerFunc(h.LoginPage))).Methods(http.MethodGet)
	router.Handle(h.dashboardPath, auth(http.HandlerFunc(h.DashboardPage))).Methods(http.MethodGet)
}

// LoginPage handles GET requests for the login page.
func (h *PageHandler) LoginPage(w http.ResponseWriter, _ *http.Request) {
	h.writePage(w, map[string]string{"page": "login"})
}

// DashboardPage handles GET requests for the dashboard page.
func (h *PageHandler) DashboardPage(w http.ResponseWriter, r *http.Request) {
	// The auth guard guarantees a user here.
	user, _ := session.FromContext(r.Context())

	h.writePage(w, map[string]string{
		"page": "dashboard",
		"user": user.Email,
	})
}

// writePage writes a page body as JSON.
func (h *PageHandler) writePage(w http.ResponseWriter, body map[string]string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error("failed to encode page", zap.Error(err))
	}
}
