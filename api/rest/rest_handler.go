package rest

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/zlnvch/heartfolio/models"
	"github.com/zlnvch/heartfolio/objects"
	"github.com/zlnvch/heartfolio/service"
	"github.com/zlnvch/heartfolio/store"
)

// Largest JSON body accepted. Image uploads have their own limit.
const maxBodyBytes = 1 << 20

type Handler struct {
	Service *service.Service
}

func NewHandler(svc *service.Service) *Handler {
	return &Handler{Service: svc}
}

type ctxKey int

const userKey ctxKey = iota

func userFrom(r *http.Request) models.User {
	user, _ := r.Context().Value(userKey).(models.User)
	return user
}

// RegisterRoutes mounts every endpoint under /api.
func (h *Handler) RegisterRoutes(router *mux.Router) {
	authRouter := router.PathPrefix("/api/auth").Subrouter()
	authRouter.HandleFunc("/signup", h.HandleSignUp).Methods(http.MethodPost)
	authRouter.HandleFunc("/signin", h.HandleSignIn).Methods(http.MethodPost)
	authRouter.HandleFunc("/oauth", h.HandleLogin).Methods(http.MethodPost)
	authRouter.HandleFunc("/reset-request", h.HandleResetRequest).Methods(http.MethodPost)
	authRouter.HandleFunc("/reset", h.HandleReset).Methods(http.MethodPost)

	api := router.PathPrefix("/api").Subrouter()
	api.Use(h.authMiddleware)

	api.HandleFunc("/me", h.handleGetUser).Methods(http.MethodGet)
	api.HandleFunc("/me", h.handleDeleteUser).Methods(http.MethodDelete)

	api.HandleFunc("/memories", h.handleListMemories).Methods(http.MethodGet)
	api.HandleFunc("/memories", h.handleSaveMemory).Methods(http.MethodPost)
	api.HandleFunc("/memories/{id}", h.handleDeleteMemory).Methods(http.MethodDelete)
	api.HandleFunc("/albums", h.handleAlbums).Methods(http.MethodGet)
	api.HandleFunc("/albums/{name}", h.handleRenameAlbum).Methods(http.MethodPut)

	api.HandleFunc("/paper-bits", h.handleListPaperBits).Methods(http.MethodGet)
	api.HandleFunc("/paper-bits", h.handleAddPaperBit).Methods(http.MethodPost)
	api.HandleFunc("/paper-bits/{id}", h.handleUpdatePaperBit).Methods(http.MethodPatch)
	api.HandleFunc("/paper-bits/{id}", h.handleDeletePaperBit).Methods(http.MethodDelete)

	api.HandleFunc("/todos", h.handleListTodos).Methods(http.MethodGet)
	api.HandleFunc("/todos", h.handleAddTodo).Methods(http.MethodPost)
	api.HandleFunc("/todos/{id}/toggle", h.handleToggleTodo).Methods(http.MethodPost)
	api.HandleFunc("/todos/{id}", h.handleMoveTodo).Methods(http.MethodPatch)
	api.HandleFunc("/todos/{id}", h.handleDeleteTodo).Methods(http.MethodDelete)

	api.HandleFunc("/diary", h.handleListEntries).Methods(http.MethodGet)
	api.HandleFunc("/diary", h.handleCreateEntry).Methods(http.MethodPost)
	api.HandleFunc("/diary/{id}", h.handleUpdateEntry).Methods(http.MethodPatch)
	api.HandleFunc("/diary/{id}", h.handleDeleteEntry).Methods(http.MethodDelete)
	api.HandleFunc("/diary/{id}/elements", h.handleListElements).Methods(http.MethodGet)

	api.HandleFunc("/home", h.handleGetHome).Methods(http.MethodGet)
	api.HandleFunc("/home/profile", h.handleSaveProfile).Methods(http.MethodPut)
	api.HandleFunc("/home/stickers", h.handleSaveStickers).Methods(http.MethodPut)
	api.HandleFunc("/home/deco/{name}", h.handleMoveDeco).Methods(http.MethodPut)
	api.HandleFunc("/theme", h.handleGetTheme).Methods(http.MethodGet)
	api.HandleFunc("/theme", h.handleSetTheme).Methods(http.MethodPut)

	api.HandleFunc("/images", h.handleUploadImage).Methods(http.MethodPost)
	api.HandleFunc("/images/url", h.handleImageURL).Methods(http.MethodGet)

	api.HandleFunc("/workspace", h.handleClearWorkspace).Methods(http.MethodDelete)
	api.HandleFunc("/account/purge", h.handlePurgeAccount).Methods(http.MethodPost)
}

func (h *Handler) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := h.getTokenFromAuthHeader(r)
		user, err := h.Service.AuthenticateToken(r.Context(), token)
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}
		ctx := context.WithValue(r.Context(), userKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Provider string `json:"provider"`
	Code     string `json:"code"`
}

type loginResponse struct {
	Id       string `json:"id"`
	Email    string `json:"email"`
	Provider string `json:"provider"`
	Token    string `json:"token"`
}

type authErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// sendAuthError reports an auth failure with the message shown to users.
func (h *Handler) sendAuthError(w http.ResponseWriter, err error) {
	status := http.StatusBadRequest
	resp := authErrorResponse{Code: "unknown", Message: service.AuthMessage(err)}

	var authErr *service.AuthError
	if errors.As(err, &authErr) {
		resp.Code = authErr.Code
		switch authErr.Code {
		case service.CodeTooManyRequests:
			status = http.StatusTooManyRequests
		case service.CodeWrongPassword, service.CodeInvalidToken:
			status = http.StatusUnauthorized
		case service.CodeUserNotFound:
			status = http.StatusNotFound
		case service.CodeEmailInUse:
			status = http.StatusConflict
		case service.CodeNetworkFailed:
			status = http.StatusBadGateway
		}
	} else {
		log.Printf("Auth request failed: %v", err)
		status = http.StatusInternalServerError
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}

func (h *Handler) HandleSignUp(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !h.decode(w, r, &req) {
		return
	}
	user, token, err := h.Service.SignUp(r.Context(), req.Email, req.Password)
	if err != nil {
		h.sendAuthError(w, err)
		return
	}
	h.sendResponse(w, loginResponse{Id: user.Id, Email: user.Email, Provider: user.Provider, Token: token})
}

func (h *Handler) HandleSignIn(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !h.decode(w, r, &req) {
		return
	}
	user, token, err := h.Service.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		h.sendAuthError(w, err)
		return
	}
	h.sendResponse(w, loginResponse{Id: user.Id, Email: user.Email, Provider: user.Provider, Token: token})
}

func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !h.decode(w, r, &req) {
		return
	}

	user, token, err := h.Service.Login(r.Context(), req.Provider, req.Code)
	if err != nil {
		log.Printf("Login failed: %v", err)
		http.Error(w, "login failed", http.StatusInternalServerError)
		return
	}
	h.sendResponse(w, loginResponse{Id: user.Id, Email: user.Email, Provider: user.Provider, Token: token})
}

type resetRequest struct {
	Email    string `json:"email"`
	Token    string `json:"token"`
	Password string `json:"password"`
}

type successResponse struct {
	Success bool `json:"success"`
}

func (h *Handler) HandleResetRequest(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.Service.RequestPasswordReset(r.Context(), req.Email); err != nil {
		h.sendAuthError(w, err)
		return
	}
	h.sendResponse(w, successResponse{Success: true})
}

func (h *Handler) HandleReset(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.Service.ResetPassword(r.Context(), req.Token, req.Password); err != nil {
		h.sendAuthError(w, err)
		return
	}
	h.sendResponse(w, successResponse{Success: true})
}

type getUserResponse struct {
	Id       string `json:"id"`
	Email    string `json:"email"`
	Provider string `json:"provider"`
	Created  int64  `json:"created"`
}

func (h *Handler) handleGetUser(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r)
	h.sendResponse(w, getUserResponse{Id: user.Id, Email: user.Email, Provider: user.Provider, Created: user.Created})
}

func (h *Handler) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.DeleteUser(r.Context(), userFrom(r)); err != nil {
		log.Printf("Delete user failed: %v", err)
		http.Error(w, "failed to delete user", http.StatusInternalServerError)
		return
	}
	h.sendResponse(w, successResponse{Success: true})
}

func (h *Handler) handleClearWorkspace(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.ClearWorkspace(r.Context(), userFrom(r).Id); err != nil {
		h.sendError(w, err)
		return
	}
	h.sendResponse(w, successResponse{Success: true})
}

func (h *Handler) handlePurgeAccount(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.PurgeAccount(r.Context(), userFrom(r).Id); err != nil {
		h.sendError(w, err)
		return
	}
	h.sendResponse(w, successResponse{Success: true})
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, store.ErrItemNotFound),
		errors.Is(err, service.ErrTodoMissing),
		errors.Is(err, service.ErrEntryMissing),
		errors.Is(err, service.ErrPaperBitMissing):
		return http.StatusNotFound
	case errors.Is(err, service.ErrNotOwned):
		return http.StatusForbidden
	case errors.Is(err, service.ErrImagesDisabled):
		return http.StatusServiceUnavailable
	case errors.Is(err, service.ErrImageTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, service.ErrEmptyText),
		errors.Is(err, service.ErrTextTooLong),
		errors.Is(err, service.ErrInvalidColor),
		errors.Is(err, service.ErrInvalidId),
		errors.Is(err, service.ErrInvalidNum),
		errors.Is(err, service.ErrMissingImage),
		errors.Is(err, service.ErrAlbumRequired),
		errors.Is(err, service.ErrUnknownBitKind),
		errors.Is(err, service.ErrInvalidTheme),
		errors.Is(err, service.ErrTooMany),
		errors.Is(err, service.ErrUnknownDeco),
		errors.Is(err, objects.ErrInvalidFolder),
		errors.Is(err, objects.ErrNotAnImage):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// sendError maps a service error to a status. Only unexpected errors are
// logged.
func (h *Handler) sendError(w http.ResponseWriter, err error) {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		log.Printf("Request failed: %v", err)
		http.Error(w, "internal error", status)
		return
	}
	http.Error(w, err.Error(), status)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}

func (h *Handler) sendResponse(w http.ResponseWriter, resp any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
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
