package server

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"net/http"
	"net/mail"
	"strings"

	"github.com/ItIsGreg/Raki-sub002/pkg/api"
	"github.com/ItIsGreg/Raki-sub002/pkg/constants"
	"github.com/ItIsGreg/Raki-sub002/pkg/models"
	"github.com/patrickmn/go-cache"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 8

type userKey struct{}

type tokenKey struct{}

// generateToken returns 32 random bytes, hex encoded.
func generateToken() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

// getTokenFromHeader extracts the bearer token from the Authorization header.
func getTokenFromHeader(r *http.Request) string {
	auth := r.Header.Get(constants.AuthorizationHeader)
	if len(auth) > len(constants.BearerPrefix) && strings.EqualFold(auth[:len(constants.BearerPrefix)], constants.BearerPrefix) {
		return auth[len(constants.BearerPrefix):]
	}
	return ""
}

// authenticated resolves the bearer token to a user and rejects the
// request with 401 otherwise.
func (s *Server) authenticated(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := getTokenFromHeader(r)
		if token == "" {
			respondError(w, http.StatusUnauthorized, "Not authenticated")
			return
		}
		cached, ok := s.sessions.Get(token)
		if !ok {
			respondError(w, http.StatusUnauthorized, "Could not validate credentials")
			return
		}
		user, err := s.store.GetUser(r.Context(), cached.(models.UserID))
		if errors.Is(err, constants.ErrNotFound) || (err == nil && !user.IsActive) {
			s.sessions.Delete(token)
			respondError(w, http.StatusUnauthorized, "Could not validate credentials")
			return
		}
		if err != nil {
			respondStoreError(w, s.log, err)
			return
		}
		ctx := context.WithValue(r.Context(), userKey{}, user)
		ctx = context.WithValue(ctx, tokenKey{}, token)
		next(w, r.WithContext(ctx))
	}
}

func userFrom(r *http.Request) *models.User {
	user, _ := r.Context().Value(userKey{}).(*models.User)
	return user
}

func tokenFrom(r *http.Request) string {
	token, _ := r.Context().Value(tokenKey{}).(string)
	return token
}

func (s *Server) issueToken(w http.ResponseWriter, user *models.User) {
	token, err := generateToken()
	if err != nil {
		respondStoreError(w, s.log, err)
		return
	}
	s.sessions.Set(token, user.ID, cache.DefaultExpiration)
	respondJSON(w, http.StatusOK, api.TokenResponse{
		AccessToken: token,
		TokenType:   api.TokenTypeBearer,
		User:        user,
	})
}

func checkCredentials(email, password string) []string {
	var reasons []string
	if _, err := mail.ParseAddress(email); err != nil {
		reasons = append(reasons, "email is not a valid address")
	}
	if len(password) < minPasswordLength {
		reasons = append(reasons, "password must be at least 8 characters")
	}
	return reasons
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req api.RegisterRequest
	if !decode(w, r, &req) {
		return
	}
	if reasons := checkCredentials(req.Email, req.Password); len(reasons) > 0 {
		respondError(w, http.StatusUnprocessableEntity, "Invalid registration", reasons...)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		respondStoreError(w, s.log, err)
		return
	}
	user := &models.User{
		Email:        req.Email,
		FullName:     req.FullName,
		PasswordHash: string(hash),
		IsActive:     true,
	}
	if err := s.store.CreateUser(r.Context(), user); err != nil {
		if errors.Is(err, constants.ErrConflict) {
			respondError(w, http.StatusConflict, "Email already registered")
			return
		}
		respondStoreError(w, s.log, err)
		return
	}

	ws := &models.Workspace{
		Name:        DefaultWorkspaceName,
		StorageType: models.StorageCloud,
		OwnerID:     user.ID,
		IsDefault:   true,
	}
	if err := s.store.CreateWorkspace(r.Context(), ws); err != nil {
		respondStoreError(w, s.log, err)
		return
	}
	s.owners.Set(ws.ID.String(), user.ID, cache.DefaultExpiration)

	s.log.Info().Str("user", user.ID.String()).Msg("user registered")
	respondJSON(w, http.StatusCreated, user)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req api.LoginRequest
	if !decode(w, r, &req) {
		return
	}
	user, err := s.store.GetUserByEmail(r.Context(), req.Email)
	if errors.Is(err, constants.ErrNotFound) {
		respondError(w, http.StatusUnauthorized, "Incorrect email or password")
		return
	}
	if err != nil {
		respondStoreError(w, s.log, err)
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		respondError(w, http.StatusUnauthorized, "Incorrect email or password")
		return
	}
	if !user.IsActive {
		respondError(w, http.StatusUnauthorized, "Inactive user")
		return
	}
	s.issueToken(w, user)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if token := getTokenFromHeader(r); token != "" {
		s.sessions.Delete(token)
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	s.sessions.Delete(tokenFrom(r))
	s.issueToken(w, userFrom(r))
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, userFrom(r))
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	var req api.ChangePasswordRequest
	if !decode(w, r, &req) {
		return
	}
	user := userFrom(r)
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.CurrentPassword)) != nil {
		respondError(w, http.StatusUnauthorized, "Incorrect password")
		return
	}
	if len(req.NewPassword) < minPasswordLength {
		respondError(w, http.StatusUnprocessableEntity, "Invalid password", "password must be at least 8 characters")
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		respondStoreError(w, s.log, err)
		return
	}
	user.PasswordHash = string(hash)
	if err := s.store.UpdateUser(r.Context(), user); err != nil {
		respondStoreError(w, s.log, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleDeleteMe(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r)
	if err := s.store.DeleteUser(r.Context(), user.ID); err != nil {
		respondStoreError(w, s.log, err)
		return
	}
	for token, item := range s.sessions.Items() {
		if item.Object == user.ID {
			s.sessions.Delete(token)
		}
	}
	s.log.Info().Str("user", user.ID.String()).Msg("account deleted")
	respondJSON(w, http.StatusNoContent, nil)
}
