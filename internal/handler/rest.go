package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/vkuksa/supermarkets/internal/backend"
	"github.com/vkuksa/supermarkets/internal/model"
	"github.com/vkuksa/supermarkets/internal/session"
	"github.com/vkuksa/supermarkets/internal/store"
)

// Version is the application version.
const Version = "1.0.0"

// RESTHandler handles REST API requests for supermarkets. Each
// authenticated user works against their own store instance.
type RESTHandler struct {
	stores *store.Registry
	logger *zap.Logger
}

// NewRESTHandler creates a new RESTHandler instance.
func NewRESTHandler(stores *store.Registry, logger *zap.Logger) *RESTHandler {
	return &RESTHandler{
		stores: stores,
		logger: logger,
	}
}

// RegisterRoutes registers the REST API routes with the router.
func (h *RESTHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/health", h.HealthCheck).Methods(http.MethodGet)
	router.HandleFunc("/ready", h.ReadyCheck).Methods(http.MethodGet)
	router.HandleFunc("/api/v1/supermarkets", h.ListSupermarkets).Methods(http.MethodGet)
	router.HandleFunc("/api/v1/supermarkets", h.CreateSupermarket).Methods(http.MethodPost)
	router.HandleFunc("/api/v1/supermarkets/{id}", h.GetSupermarket).Methods(http.MethodGet)
	router.HandleFunc("/api/v1/supermarkets/{id}", h.UpdateSupermarket).Methods(http.MethodPut)
	router.HandleFunc("/api/v1/supermarkets/{id}", h.DeleteSupermarket).Methods(http.MethodDelete)
}

// HealthCheck handles GET /health requests.
func (h *RESTHandler) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	response := HealthResponse{
		Status:  "healthy",
		Version: Version,
	}
	h.writeJSON(w, http.StatusOK, model.NewSuccessResponse(response))
}

// ReadyCheck handles GET /ready requests.
func (h *RESTHandler) ReadyCheck(w http.ResponseWriter, _ *http.Request) {
	response := ReadyResponse{Status: "ready"}
	h.writeJSON(w, http.StatusOK, model.NewSuccessResponse(response))
}

// storeFor resolves the calling user's store. API calls without a session
// get a 401; redirecting is for page navigation, not the JSON API.
func (h *RESTHandler) storeFor(w http.ResponseWriter, r *http.Request) (*store.Store, bool) {
	user, ok := session.FromContext(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "authentication required")
		return nil, false
	}
	return h.stores.ForUser(user.ID), true
}

// ListSupermarkets handles GET /api/v1/supermarkets requests.
func (h *RESTHandler) ListSupermarkets(w http.ResponseWriter, r *http.Request) {
	s, ok := h.storeFor(w, r)
	if !ok {
		return
	}

	supermarkets, err := s.List(r.Context())
	if err != nil {
		h.handleStoreError(w, err, "list supermarkets")
		return
	}

	h.writeJSON(w, http.StatusOK, model.NewSuccessResponse(supermarkets))
}

// GetSupermarket handles GET /api/v1/supermarkets/{id} requests.
func (h *RESTHandler) GetSupermarket(w http.ResponseWriter, r *http.Request) {
	s, ok := h.storeFor(w, r)
	if !ok {
		return
	}

	id := mux.Vars(r)["id"]

	supermarket, err := s.GetByID(r.Context(), id)
	if err != nil {
		h.handleStoreError(w, err, "get supermarket")
		return
	}

	h.writeJSON(w, http.StatusOK, model.NewSuccessResponse(supermarket))
}

// CreateSupermarket handles POST /api/v1/supermarkets requests.
func (h *RESTHandler) CreateSupermarket(w http.ResponseWriter, r *http.Request) {
	s, ok := h.storeFor(w, r)
	if !ok {
		return
	}

	var input model.CreateSupermarketInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		h.logger.Warn("invalid request body", zap.Error(err))
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := input.Validate(); err != nil {
		h.logger.Warn("validation failed", zap.Error(err))
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	supermarket, err := s.Create(r.Context(), &input)
	if err != nil {
		h.handleStoreError(w, err, "create supermarket")
		return
	}

	h.writeJSON(w, http.StatusCreated, model.NewSuccessResponse(supermarket))
}

// UpdateSupermarket handles PUT /api/v1/supermarkets/{id} requests.
func (h *RESTHandler) UpdateSupermarket(w http.ResponseWriter, r *http.Request) {
	s, ok := h.storeFor(w, r)
	if !ok {
		return
	}

	id := mux.Vars(r)["id"]

	var input model.UpdateSupermarketInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		h.logger.Warn("invalid request body", zap.Error(err))
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := input.Validate(); err != nil {
		h.logger.Warn("validation failed", zap.Error(err))
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	supermarket, err := s.Update(r.Context(), id, &input)
	if err != nil {
		h.handleStoreError(w, err, "update supermarket")
		return
	}

	h.writeJSON(w, http.StatusOK, model.NewSuccessResponse(supermarket))
}

// DeleteSupermarket handles DELETE /api/v1/supermarkets/{id} requests.
func (h *RESTHandler) DeleteSupermarket(w http.ResponseWriter, r *http.Request) {
	s, ok := h.storeFor(w, r)
	if !ok {
		return
	}

	id := mux.Vars(r)["id"]

	if err := s.Delete(r.Context(), id); err != nil {
		h.handleStoreError(w, err, "delete supermarket")
		return
	}

	h.writeJSON(w, http.StatusNoContent, nil)
}

// handleStoreError maps store errors to HTTP responses.
func (h *RESTHandler) handleStoreError(w http.ResponseWriter, err error, operation string) {
	switch {
	case errors.Is(err, backend.ErrNotFound):
		h.writeError(w, http.StatusNotFound, "supermarket not found")
	case errors.Is(err, backend.ErrInvalidID):
		h.writeError(w, http.StatusBadRequest, "invalid supermarket ID")
	case errors.Is(err, backend.ErrNotAuthenticated):
		h.writeError(w, http.StatusUnauthorized, "authentication required")
	default:
		h.logger.Error("store operation failed", zap.String("operation", operation), zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// writeJSON writes a JSON response with the given status code.
func (h *RESTHandler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if data == nil {
		return
	}

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", zap.Error(err))
	}
}

// writeError writes an error response with the given status code and message.
func (h *RESTHandler) writeError(w http.ResponseWriter, status int, message string) {
	response := model.ErrorResponse{
		Code:    status,
		Message: message,
	}
	h.writeJSON(w, status, response)
}
