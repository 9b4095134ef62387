package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/sessions"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrInvalidCredentials is returned when the provided credentials are invalid.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrSessionNotFound is returned when the request carries no staff session.
	ErrSessionNotFound = errors.New("session not found")
)

const (
	sessionName = "asistencia"
	userIDKey   = "user_id"
	userNameKey = "user_name"
)

// SessionLifetime is how long a staff session stays valid.
const SessionLifetime = 60 * time.Minute

// Sessions keeps the staff id in a signed cookie.
type Sessions struct {
	store sessions.Store
}

// NewSessions creates a cookie session manager signed with secret.
func NewSessions(secret []byte) *Sessions {
	store := sessions.NewCookieStore(secret)
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(SessionLifetime.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	return &Sessions{store: store}
}

// Login stores the staff id in a fresh session cookie.
func (s *Sessions) Login(w http.ResponseWriter, r *http.Request, userID int, name string) error {
	session, err := s.store.New(r, sessionName)
	if err != nil && session == nil {
		return err
	}
	session.Values[userIDKey] = userID
	session.Values[userNameKey] = name
	return s.store.Save(r, w, session)
}

// Logout expires the session cookie.
func (s *Sessions) Logout(w http.ResponseWriter, r *http.Request) error {
	session, err := s.store.Get(r, sessionName)
	if err != nil && session == nil {
		return err
	}
	session.Values = map[interface{}]interface{}{}
	session.Options.MaxAge = -1
	return s.store.Save(r, w, session)
}

// UserID returns the staff id of the request's session.
func (s *Sessions) UserID(r *http.Request) (int, error) {
	session, err := s.store.Get(r, sessionName)
	if err != nil {
		return 0, ErrSessionNotFound
	}
	id, ok := session.Values[userIDKey].(int)
	if !ok {
		return 0, ErrSessionNotFound
	}
	return id, nil
}

// Middleware answers 401 with a JSON envelope when there is no session.
func (s *Sessions) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := s.UserID(r); err != nil {
			JSONResponse(w, http.StatusUnauthorized, map[string]interface{}{
				"success": false,
				"message": "No autenticado",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// JSONResponse writes a JSON response.
func JSONResponse(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

// HashPassword hashes a password.
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

// CheckPasswordHash checks a password hash.
func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}
