package http

import (
	"errors"
	"net/http"
	"time"

	"outlay/internal/auth"
	"outlay/internal/log"
	"outlay/internal/storage"
)

type googleOauthRequest struct {
	Credential string `json:"credential"`
}

type userPayload struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type userUpdateRequest struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// handleGoogleOauth handles POST /oauth/google. It exchanges a Google
// ID token for an application token, creating the user on first login.
func (s *Server) handleGoogleOauth(w http.ResponseWriter, r *http.Request) {
	var req googleOauthRequest
	if err := decodeJSON(r, &req); err != nil || req.Credential == "" {
		BadRequestError("Missing credential").Write(w)
		return
	}

	identity, err := s.verifier.Verify(r.Context(), req.Credential)
	if err != nil {
		s.logger.WarnContext(r.Context(), "google credential rejected", log.FieldError, err)
		UnauthorizedError("Invalid ID token").Write(w)
		return
	}

	user, err := s.repo.UpsertUserByGoogleID(r.Context(), identity.GoogleID, identity.Email, identity.Name)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "upsert user", log.FieldError, err)
		InternalServerError("Failed to insert or update user").Write(w)
		return
	}

	token, err := s.issuer.Issue(user.ID, user.Email)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "issue token",
			log.FieldError, err, log.FieldUserID, user.ID)
		InternalServerError("Failed to issue token").Write(w)
		return
	}

	s.logger.InfoContext(r.Context(), "user logged in",
		log.FieldOperation, log.OpLogin, log.FieldUserID, user.ID)
	NewJSONResponse().Body(map[string]any{
		"userId": user.ID,
		"token":  token,
	}).Write(w)
}

// handleListUsers handles GET /users.
func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.service.Users(r.Context())
	if err != nil {
		s.logger.ErrorContext(r.Context(), "list users", log.FieldError, err)
		InternalServerError("Failed to fetch users").Write(w)
		return
	}

	payload := make([]userPayload, len(users))
	for i, u := range users {
		payload[i] = userPayload{
			ID:        u.ID,
			Email:     u.Email,
			Name:      u.Name,
			CreatedAt: u.CreatedAt,
			UpdatedAt: u.UpdatedAt,
		}
	}
	NewJSONResponse().Body(map[string]any{"users": payload}).Write(w)
}

// handleUpdateUser handles PUT /users. The caller can only update the
// profile the token belongs to.
func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	var req userUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		BadRequestError("Invalid input").Write(w)
		return
	}
	if sanitizeInput(req.Name) == "" && sanitizeInput(req.Email) == "" {
		BadRequestError("Invalid input").Write(w)
		return
	}

	claims, _ := auth.ClaimsFromContext(r.Context())
	err := s.repo.UpdateUserProfile(r.Context(), claims.UserID, sanitizeInput(req.Email), sanitizeInput(req.Name))
	if errors.Is(err, storage.ErrNotFound) {
		NotFoundError("User not found").Write(w)
		return
	}
	if err != nil {
		s.logger.ErrorContext(r.Context(), "update user",
			log.FieldError, err, log.FieldUserID, claims.UserID)
		InternalServerError("Failed to update user").Write(w)
		return
	}

	NewJSONResponse().Message("User updated successfully").Write(w)
}
