package auth

import (
	"crypto/rand"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/you/go-flight-offers/internal/config"
)

const tokenTTL = time.Hour

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Authenticator issues and checks HS256 tokens for the single configured
// user.
type Authenticator struct {
	secret   []byte
	user     string
	password string
	now      func() time.Time
	log      *zap.Logger
}

func New(cfg *config.Config, log *zap.Logger) *Authenticator {
	if log == nil {
		log = zap.NewNop()
	}
	secret := []byte(cfg.JWTSecret)
	if len(secret) == 0 {
		// tokens will not survive a restart
		secret = make([]byte, 32)
		_, _ = rand.Read(secret)
		log.Warn("jwt_secret not set, using a random per-process secret")
	}
	return &Authenticator{
		secret:   secret,
		user:     cfg.JWTUser,
		password: cfg.JWTPassword,
		now:      time.Now,
		log:      log,
	}
}

func (a *Authenticator) Issue(username string) (string, time.Time, error) {
	now := a.now()
	exp := now.Add(tokenTTL)
	claims := jwt.RegisteredClaims{
		Subject:   username,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	return signed, exp, err
}

func (a *Authenticator) verify(tok string) error {
	_, err := jwt.ParseWithClaims(tok, &jwt.RegisteredClaims{}, func(t *jwt.Token) (any, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(a.now))
	return err
}

// Middleware rejects requests without a valid bearer token. Browsers
// cannot set headers on EventSource or WebSocket requests, so a ?token=
// query parameter is accepted too.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tok, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok {
			tok = r.URL.Query().Get("token")
		}
		if tok == "" {
			http.Error(w, "missing bearer token", http.StatusUnauthorized)
			return
		}
		if err := a.verify(tok); err != nil {
			a.log.Debug("jwt rejected", zap.String("path", r.URL.Path), zap.Error(err))
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (a *Authenticator) LoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var req loginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		if req.Username != a.user || req.Password != a.password {
			http.Error(w, "invalid credentials", http.StatusUnauthorized)
			return
		}
		tok, exp, err := a.Issue(req.Username)
		if err != nil {
			a.log.Error("sign token", zap.Error(err))
			http.Error(w, "could not issue token", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(loginResponse{Token: tok, ExpiresAt: exp})
	}
}
