package authkit

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
)

// Server exposes the account service over HTTP. Session tokens travel in the
// Authorization header in both directions; response bodies never carry
// token material.
type Server struct {
	Service    *AuthService
	Middleware *Middleware
}

// NewServer wires a Server around the service with default middleware.
func NewServer(service *AuthService) *Server {
	return &Server{
		Service: service,
		Middleware: &Middleware{
			VerifyToken: service.Tokens.VerifySessionToken,
			Accounts:    service.Accounts,
		},
	}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/login", s.handleLogin).Methods(http.MethodPost)
	r.HandleFunc("/api/auth/register", s.handleRegister).Methods(http.MethodPost)
	r.HandleFunc("/api/auth/register/check", s.handleRegisterCheck).Methods(http.MethodGet)
	r.HandleFunc("/api/auth/google", s.handleGoogleLogin).Methods(http.MethodPost)
	r.Handle("/api/auth/me", s.Middleware.ExtractPrincipal(http.HandlerFunc(s.handleAuthMe))).Methods(http.MethodGet)

	me := r.PathPrefix("/api/users").Subrouter()
	me.Use(s.Middleware.RequirePrincipal)
	me.HandleFunc("/me", s.handleMyProfile).Methods(http.MethodGet)
	me.HandleFunc("/me", s.handleUpdateMyInfo).Methods(http.MethodPatch)
	me.HandleFunc("/me/categories", s.handleGetCategories).Methods(http.MethodGet)
	me.HandleFunc("/me/categories", s.handleSaveCategories).Methods(http.MethodPost)
	me.HandleFunc("/me/verify-password", s.handleVerifyPassword).Methods(http.MethodPost)

	return r
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, NewAuthError(ErrCodeInvalidArgument, "invalid request body", ""))
		return
	}

	account, token, err := s.Service.Register(r.Context(), &req)
	if err != nil {
		writeError(w, err)
		return
	}

	setSessionToken(w, token)
	writeJSON(w, http.StatusOK, map[string]any{
		"accountId":   account.AccountID,
		"displayName": account.DisplayName,
	})
}

func (s *Server) handleRegisterCheck(w http.ResponseWriter, r *http.Request) {
	if err := s.Service.CheckAccountIDAvailable(r.Context(), r.URL.Query().Get("accountId")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"available": true})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var creds struct {
		AccountID string `json:"accountId"`
		Password  string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeError(w, NewAuthError(ErrCodeInvalidArgument, "invalid request body", ""))
		return
	}

	account, token, err := s.Service.Login(r.Context(), creds.AccountID, creds.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	setSessionToken(w, token)
	writeJSON(w, http.StatusOK, map[string]any{
		"authenticated": true,
		"accountId":     account.AccountID,
		"displayName":   account.DisplayName,
	})
}

func (s *Server) handleGoogleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IDToken string `json:"idToken"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.IDToken == "" {
		writeError(w, NewAuthError(ErrCodeInvalidArgument, "idToken is required", "idToken"))
		return
	}

	_, token, err := s.Service.FederatedLogin(r.Context(), req.IDToken)
	if err != nil {
		writeError(w, err)
		return
	}

	setSessionToken(w, token)
	w.WriteHeader(http.StatusOK)
}

// handleAuthMe answers the "am I logged in" probe. Unlike the /api/users
// routes it never 401s; an anonymous caller just gets authenticated=false.
func (s *Server) handleAuthMe(w http.ResponseWriter, r *http.Request) {
	account := PrincipalFromContext(r.Context())
	if account == nil {
		writeJSON(w, http.StatusOK, map[string]any{"authenticated": false})
		return
	}
	writeJSON(w, http.StatusOK, profileBody(account))
}

func (s *Server) handleMyProfile(w http.ResponseWriter, r *http.Request) {
	account := PrincipalFromContext(r.Context())
	writeJSON(w, http.StatusOK, profileBody(account))
}

func (s *Server) handleUpdateMyInfo(w http.ResponseWriter, r *http.Request) {
	account := PrincipalFromContext(r.Context())

	var req UpdateMyInfoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, NewAuthError(ErrCodeInvalidArgument, "invalid request body", ""))
		return
	}

	if err := s.Service.UpdateMyInfo(r.Context(), account.AccountID, &req); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"updated": true})
}

func (s *Server) handleGetCategories(w http.ResponseWriter, r *http.Request) {
	account := PrincipalFromContext(r.Context())
	categories, err := s.Service.GetCategories(r.Context(), account.AccountID)
	if err != nil {
		writeError(w, err)
		return
	}
	names := make([]string, 0, len(categories))
	for _, c := range categories {
		names = append(names, string(c))
	}
	writeJSON(w, http.StatusOK, names)
}

func (s *Server) handleSaveCategories(w http.ResponseWriter, r *http.Request) {
	account := PrincipalFromContext(r.Context())

	var req struct {
		Categories []string `json:"categories"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, NewAuthError(ErrCodeInvalidArgument, "invalid request body", ""))
		return
	}

	if err := s.Service.UpdateCategories(r.Context(), account.AccountID, req.Categories); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"updated": true})
}

func (s *Server) handleVerifyPassword(w http.ResponseWriter, r *http.Request) {
	account := PrincipalFromContext(r.Context())

	var req struct {
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, NewAuthError(ErrCodeInvalidArgument, "invalid request body", ""))
		return
	}

	grant, err := s.Service.StartReverify(r.Context(), account.AccountID, req.Password)
	if err != nil {
		var ae *AuthError
		if errors.As(err, &ae) && ae.Code == ErrCodeInvalidCredential {
			writeJSON(w, http.StatusUnauthorized, map[string]any{
				"verified": false,
				"message":  "Please check your password and try again.",
			})
			return
		}
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"verified":      true,
		"reverifyToken": grant.Token,
		"expiresAt":     grant.ExpiresAt.UnixMilli(),
	})
}

func profileBody(account *Account) map[string]any {
	selected := account.CategoriesSelected()
	return map[string]any{
		"authenticated":          true,
		"accountId":              account.AccountID,
		"displayName":            account.DisplayName,
		"provider":               account.Provider,
		"phone":                  account.Phone,
		"birthDate":              account.BirthDate,
		"categories":             account.CategoryNames(),
		"categoriesSelected":     selected,
		"needsCategorySelection": !selected,
	}
}

// setSessionToken returns the token in the Authorization header, exposed for
// browser clients, keeping it out of the (cacheable, loggable) body.
func setSessionToken(w http.ResponseWriter, token string) {
	w.Header().Set("Authorization", "Bearer "+token)
	w.Header().Set("Access-Control-Expose-Headers", "Authorization")
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// writeError maps the error taxonomy onto HTTP statuses. Invalid tokens use
// the uniform unauthenticated shape; anything unrecognized is logged and
// reported as a retryable service failure without internal detail.
func writeError(w http.ResponseWriter, err error) {
	code := CodeOf(err)
	switch code {
	case ErrCodeInvalidToken:
		WriteUnauthenticated(w)
		return
	case ErrCodeInvalidCredential:
		writeAuthError(w, http.StatusUnauthorized, err, code)
	case ErrCodeForbidden:
		writeAuthError(w, http.StatusForbidden, err, code)
	case ErrCodeInvalidArgument, ErrCodeUnverified:
		writeAuthError(w, http.StatusBadRequest, err, code)
	default:
		slog.Error("request failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"code":    ErrCodeUnavailable,
			"message": "The service is temporarily unavailable. Please try again.",
		})
	}
}

func writeAuthError(w http.ResponseWriter, status int, err error, code string) {
	var ae *AuthError
	if errors.As(err, &ae) {
		writeJSON(w, status, ae)
		return
	}
	writeJSON(w, status, map[string]any{"code": code, "message": err.Error()})
}
