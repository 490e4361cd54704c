package rest

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/nkazmin/liveboard/models"
	"github.com/nkazmin/liveboard/service"
)

type Handler struct {
	Service *service.Service
}

func NewHandler(svc *service.Service) *Handler {
	return &Handler{Service: svc}
}

type loginRequest struct {
	Provider string `json:"provider"`
	Code     string `json:"code"`
}

type loginResponse struct {
	Id        string `json:"id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatarUrl"`
	Token     string `json:"token"`
}

func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	user, token, err := h.Service.Login(r.Context(), req.Provider, req.Code)
	if err != nil {
		log.Printf("Login failed: %v", err)
		http.Error(w, "login failed", http.StatusInternalServerError)
		return
	}

	h.sendResponse(w, loginResponse{
		Id:        user.Id,
		Email:     user.Email,
		Name:      user.Name,
		AvatarURL: user.AvatarURL,
		Token:     token,
	})
}

func (h *Handler) HandleMe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	user, ok := h.authenticate(w, r)
	if !ok {
		return
	}

	h.sendResponse(w, user)
}

// Canvases

type canvasRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Visibility  string `json:"visibility"`
}

func (h *Handler) HandleCanvases(w http.ResponseWriter, r *http.Request) {
	user, ok := h.authenticate(w, r)
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodGet:
		canvases, err := h.Service.ListUserCanvases(r.Context(), user)
		if err != nil {
			h.sendServiceError(w, err)
			return
		}
		h.sendResponse(w, canvases)

	case http.MethodPost:
		var req canvasRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		canvas, err := h.Service.CreateCanvas(r.Context(), user, req.Title, req.Description, models.Visibility(req.Visibility))
		if err != nil {
			h.sendServiceError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		h.sendResponse(w, canvas)

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) HandleCanvas(w http.ResponseWriter, r *http.Request) {
	user, ok := h.authenticate(w, r)
	if !ok {
		return
	}
	canvasId := r.PathValue("canvasId")

	switch r.Method {
	case http.MethodGet:
		canvas, err := h.Service.GetCanvas(r.Context(), user, canvasId)
		if err != nil {
			h.sendServiceError(w, err)
			return
		}
		h.sendResponse(w, canvas)

	case http.MethodPut:
		var req canvasRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		canvas, err := h.Service.UpdateCanvas(r.Context(), user, canvasId, req.Title, req.Description, models.Visibility(req.Visibility))
		if err != nil {
			h.sendServiceError(w, err)
			return
		}
		h.sendResponse(w, canvas)

	case http.MethodDelete:
		if err := h.Service.DeleteCanvas(r.Context(), user, canvasId); err != nil {
			h.sendServiceError(w, err)
			return
		}
		h.sendResponse(w, map[string]bool{"success": true})

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// Objects

type objectRequest struct {
	ObjectType string          `json:"objectType"`
	Properties json.RawMessage `json:"properties"`
}

func (h *Handler) HandleObjects(w http.ResponseWriter, r *http.Request) {
	user, ok := h.authenticate(w, r)
	if !ok {
		return
	}
	canvasId := r.PathValue("canvasId")

	switch r.Method {
	case http.MethodGet:
		objects, err := h.Service.GetCanvasObjects(r.Context(), user, canvasId)
		if err != nil {
			h.sendServiceError(w, err)
			return
		}
		h.sendResponse(w, objects)

	case http.MethodPost:
		var req objectRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		object, err := h.Service.CreateObject(r.Context(), user, canvasId, models.ObjectType(req.ObjectType), req.Properties)
		if err != nil {
			h.sendServiceError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		h.sendResponse(w, object)

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) HandleObject(w http.ResponseWriter, r *http.Request) {
	user, ok := h.authenticate(w, r)
	if !ok {
		return
	}
	canvasId := r.PathValue("canvasId")
	objectId := r.PathValue("objectId")

	switch r.Method {
	case http.MethodGet:
		object, err := h.Service.GetObject(r.Context(), user, canvasId, objectId)
		if err != nil {
			h.sendServiceError(w, err)
			return
		}
		h.sendResponse(w, object)

	case http.MethodPut:
		var req objectRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		object, err := h.Service.UpdateObject(r.Context(), user, canvasId, objectId, req.Properties)
		if err != nil {
			h.sendServiceError(w, err)
			return
		}
		h.sendResponse(w, object)

	case http.MethodDelete:
		if err := h.Service.DeleteObject(r.Context(), user, canvasId, objectId); err != nil {
			h.sendServiceError(w, err)
			return
		}
		h.sendResponse(w, map[string]bool{"success": true})

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// Collaborators

type collaboratorRequest struct {
	Permission string `json:"permission"`
}

func (h *Handler) HandleCollaborators(w http.ResponseWriter, r *http.Request) {
	user, ok := h.authenticate(w, r)
	if !ok {
		return
	}
	canvasId := r.PathValue("canvasId")

	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	collaborators, err := h.Service.ListCollaborators(r.Context(), user, canvasId)
	if err != nil {
		h.sendServiceError(w, err)
		return
	}
	h.sendResponse(w, collaborators)
}

func (h *Handler) HandleCollaborator(w http.ResponseWriter, r *http.Request) {
	user, ok := h.authenticate(w, r)
	if !ok {
		return
	}
	canvasId := r.PathValue("canvasId")
	collaboratorId := r.PathValue("userId")

	switch r.Method {
	case http.MethodPut:
		var req collaboratorRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		perm, err := h.Service.UpdateCollaboratorPermission(r.Context(), user, canvasId, collaboratorId, req.Permission)
		if err != nil {
			h.sendServiceError(w, err)
			return
		}
		h.sendResponse(w, perm)

	case http.MethodDelete:
		if err := h.Service.RemoveCollaborator(r.Context(), user, canvasId, collaboratorId); err != nil {
			h.sendServiceError(w, err)
			return
		}
		h.sendResponse(w, map[string]bool{"success": true})

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// Invitations

type inviteRequest struct {
	Email      string `json:"email"`
	Permission string `json:"permission"`
}

func (h *Handler) HandleCanvasInvitations(w http.ResponseWriter, r *http.Request) {
	user, ok := h.authenticate(w, r)
	if !ok {
		return
	}
	canvasId := r.PathValue("canvasId")

	switch r.Method {
	case http.MethodGet:
		invitations, err := h.Service.ListCanvasInvitations(r.Context(), user, canvasId)
		if err != nil {
			h.sendServiceError(w, err)
			return
		}
		h.sendResponse(w, invitations)

	case http.MethodPost:
		var req inviteRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		invitation, err := h.Service.InviteCollaborator(r.Context(), user, canvasId, req.Email, req.Permission)
		if err != nil {
			h.sendServiceError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		h.sendResponse(w, invitation)

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) HandleUserInvitations(w http.ResponseWriter, r *http.Request) {
	user, ok := h.authenticate(w, r)
	if !ok {
		return
	}

	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	invitations, err := h.Service.ListUserInvitations(r.Context(), user)
	if err != nil {
		h.sendServiceError(w, err)
		return
	}
	h.sendResponse(w, invitations)
}

func (h *Handler) HandleAcceptInvitation(w http.ResponseWriter, r *http.Request) {
	user, ok := h.authenticate(w, r)
	if !ok {
		return
	}

	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	perm, err := h.Service.AcceptInvitation(r.Context(), user, r.PathValue("invitationId"))
	if err != nil {
		h.sendServiceError(w, err)
		return
	}
	h.sendResponse(w, perm)
}

func (h *Handler) HandleDeclineInvitation(w http.ResponseWriter, r *http.Request) {
	user, ok := h.authenticate(w, r)
	if !ok {
		return
	}

	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := h.Service.DeclineInvitation(r.Context(), user, r.PathValue("invitationId")); err != nil {
		h.sendServiceError(w, err)
		return
	}
	h.sendResponse(w, map[string]bool{"success": true})
}

// Helpers

func (h *Handler) authenticate(w http.ResponseWriter, r *http.Request) (models.User, bool) {
	token := h.getTokenFromAuthHeader(r)
	user, err := h.Service.AuthenticateToken(r.Context(), token)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return models.User{}, false
	}
	return user, true
}

func (h *Handler) sendResponse(w http.ResponseWriter, resp any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
	}
}

func (h *Handler) sendServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidArgument):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, service.ErrUnauthorized):
		http.Error(w, err.Error(), http.StatusUnauthorized)
	case errors.Is(err, service.ErrForbidden):
		http.Error(w, err.Error(), http.StatusForbidden)
	case errors.Is(err, service.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, service.ErrConflict):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, service.ErrExpired):
		http.Error(w, err.Error(), http.StatusGone)
	default:
		log.Printf("Internal error: %v", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func (h *Handler) getTokenFromAuthHeader(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}
	const prefix = "Bearer "
	if !strings.HasPrefix(authHeader, prefix) {
		return ""
	}
	return strings.TrimPrefix(authHeader, prefix)
}
