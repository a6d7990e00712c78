package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/npezzotti/go-chatapp/internal/database"
	"github.com/npezzotti/go-chatapp/internal/images"
	"github.com/npezzotti/go-chatapp/internal/types"
)

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type SignupRequest struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Bio      string `json:"bio"`
}

type UpdateProfileRequest struct {
	FullName string `json:"full_name"`
	Bio      string `json:"bio"`
	// ProfilePic is an optional base64 data URI.
	ProfilePic string `json:"profile_pic"`
}

type AuthResponse struct {
	User  types.User `json:"user"`
	Token string     `json:"token"`
}

func (s *GoChatApp) writeJson(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if v == nil {
		return
	}

	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Printf("json encode: %v", err)
	}
}

func (s *GoChatApp) writeError(w http.ResponseWriter, errResp *ApiError) {
	s.writeJson(w, errResp.StatusCode, errResp)
}

// decodeJson decodes the request body into v, reporting oversized bodies
// separately from malformed ones.
func decodeJson(r *http.Request, v any) *ApiError {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return NewRequestTooLargeError()
		}
		return NewBadRequestError()
	}

	return nil
}

func lookupError(err error) *ApiError {
	if errors.Is(err, sql.ErrNoRows) {
		return NewNotFoundError()
	}

	return NewInternalServerError(err)
}

func toUser(u database.User) types.User {
	return types.User{
		Id:           u.Id,
		FullName:     u.FullName,
		EmailAddress: u.EmailAddress,
		Bio:          u.Bio,
		ProfilePic:   u.ProfilePic,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func (s *GoChatApp) uploadImage(ctx context.Context, dataURI string) (string, *ApiError) {
	if s.images == nil {
		return "", NewServiceUnavailableError()
	}

	url, err := s.images.Upload(ctx, dataURI)
	if err != nil {
		if errors.Is(err, images.ErrInvalidImage) {
			return "", NewBadRequestError()
		}
		s.log.Println("image upload:", err)
		return "", NewBadGatewayError(err)
	}

	return url, nil
}

func (s *GoChatApp) healthCheck(w http.ResponseWriter, r *http.Request) {
	if err := s.db.Ping(); err != nil {
		s.writeError(w, NewInternalServerError(err))
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (s *GoChatApp) status(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Server is live"))
}

func (s *GoChatApp) startSession(w http.ResponseWriter, statusCode int, user types.User) {
	token, err := s.createJwtForSession(user, defaultJwtExpiration)
	if err != nil {
		s.writeError(w, NewInternalServerError(err))
		return
	}

	http.SetCookie(w, createJwtCookie(token, defaultJwtExpiration))

	s.writeJson(w, statusCode, AuthResponse{User: user, Token: token})
}

func (s *GoChatApp) signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if errResp := decodeJson(r, &req); errResp != nil {
		s.writeError(w, errResp)
		return
	}

	req.Email = strings.TrimSpace(req.Email)
	if strings.TrimSpace(req.FullName) == "" || req.Email == "" || req.Password == "" {
		s.writeError(w, NewBadRequestError())
		return
	}

	pwdHash, err := hashPassword(req.Password)
	if err != nil {
		s.writeError(w, NewInternalServerError(err))
		return
	}

	newUser, err := s.db.CreateAccount(database.CreateAccountParams{
		FullName:     strings.TrimSpace(req.FullName),
		EmailAddress: req.Email,
		PasswordHash: pwdHash,
		Bio:          req.Bio,
	})
	if err != nil {
		if errors.Is(err, database.ErrDuplicateEmail) {
			s.writeError(w, NewConflictError())
			return
		}
		s.writeError(w, NewInternalServerError(err))
		return
	}

	s.startSession(w, http.StatusCreated, toUser(newUser))
}

func (s *GoChatApp) login(w http.ResponseWriter, r *http.Request) {
	var lr LoginRequest
	if errResp := decodeJson(r, &lr); errResp != nil {
		s.writeError(w, errResp)
		return
	}

	if lr.Email == "" || lr.Password == "" {
		s.writeError(w, NewBadRequestError())
		return
	}

	dbUser, err := s.db.GetAccountByEmail(strings.TrimSpace(lr.Email))
	if err != nil {
		s.writeError(w, lookupError(err))
		return
	}

	if !verifyPassword(dbUser.PasswordHash, lr.Password) {
		s.writeError(w, NewUnauthorizedError())
		return
	}

	s.startSession(w, http.StatusOK, toUser(dbUser))
}

func (s *GoChatApp) checkAuth(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		s.writeError(w, NewUnauthorizedError())
		return
	}

	user, err := s.db.GetAccountById(userId)
	if err != nil {
		s.writeError(w, lookupError(err))
		return
	}

	s.writeJson(w, http.StatusOK, toUser(user))
}

func (s *GoChatApp) logout(w http.ResponseWriter, _ *http.Request) {
	// instruct browser to delete cookie by overwriting it with an expired token
	http.SetCookie(w, createJwtCookie("", time.Duration(time.Unix(0, 0).Unix())))
	w.WriteHeader(http.StatusNoContent)
}

func (s *GoChatApp) updateProfile(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		s.writeError(w, NewUnauthorizedError())
		return
	}

	var req UpdateProfileRequest
	if errResp := decodeJson(r, &req); errResp != nil {
		s.writeError(w, errResp)
		return
	}

	if strings.TrimSpace(req.FullName) == "" {
		s.writeError(w, NewBadRequestError())
		return
	}

	params := database.UpdateAccountParams{
		UserId:   userId,
		FullName: strings.TrimSpace(req.FullName),
		Bio:      req.Bio,
	}

	if req.ProfilePic != "" {
		url, errResp := s.uploadImage(r.Context(), req.ProfilePic)
		if errResp != nil {
			s.writeError(w, errResp)
			return
		}
		params.ProfilePic = url
	}

	dbUser, err := s.db.UpdateAccount(params)
	if err != nil {
		s.writeError(w, lookupError(err))
		return
	}

	s.writeJson(w, http.StatusOK, toUser(dbUser))
}

func (s *GoChatApp) serveWs(w http.ResponseWriter, r *http.Request) {
	id, ok := UserId(r.Context())
	if !ok {
		s.writeError(w, NewUnauthorizedError())
		return
	}

	user, err := s.db.GetAccountById(id)
	if err != nil {
		s.writeError(w, lookupError(err))
		return
	}

	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			// only allow connections from allowed origins
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}

			return slices.Contains(s.allowedOrigins, origin)
		},
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Println("error upgrading connection:", err)
		return
	}

	s.cs.Connect(toUser(user), conn)
}
