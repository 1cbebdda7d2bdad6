// Package auth provides JWT-based session validation with metrics.
package auth

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/bytevault/bytevault/internal/account"
	"github.com/bytevault/bytevault/internal/logging"
	"github.com/bytevault/bytevault/internal/metrics"
	"github.com/bytevault/bytevault/internal/protocol"
)

type contextKey string

const sessionContextKey contextKey = "session"

// Claims holds JWT token claims.
type Claims struct {
	AccountID    int    `json:"account_id"`
	Username     string `json:"username"`
	StoragePath  string `json:"storage_path"`
	FamilyMember bool   `json:"family_member"`
	jwt.RegisteredClaims
}

// Auth validates sessions and issues tokens.
type Auth struct {
	db     *sql.DB
	secret []byte
}

// New creates a new Auth handler.
func New(db *sql.DB, jwtSecret string) *Auth {
	return &Auth{
		db:     db,
		secret: []byte(jwtSecret),
	}
}

// Validate implements account.SessionService. Suspension is re-read from
// the database on every call: a token minted before suspension must not
// keep writing.
func (a *Auth) Validate(ctx context.Context, token string) (*account.Session, error) {
	claims, err := a.validateToken(token)
	if err != nil {
		return nil, err
	}

	// StoragePath here is the claim value; the API layer swaps in the
	// current root through the root cache before any filesystem work.
	sess := &account.Session{
		AccountID:    claims.AccountID,
		StoragePath:  claims.StoragePath,
		FamilyMember: claims.FamilyMember,
	}
	err = a.db.QueryRowContext(ctx,
		`SELECT suspended FROM accounts WHERE id = $1`,
		claims.AccountID).Scan(&sess.Suspended)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("account no longer exists")
	}
	if err != nil {
		return nil, fmt.Errorf("load account: %w", err)
	}
	return sess, nil
}

// Middleware returns HTTP middleware that validates bearer tokens and
// stores the session in the request context. Requests without a valid
// token pass through with no session; handlers decide whether reads
// require one, and the policy gate rejects all writes.
func (a *Auth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenStr := extractToken(r)
		if tokenStr == "" {
			next.ServeHTTP(w, r)
			return
		}

		sess, err := a.Validate(r.Context(), tokenStr)
		if err != nil {
			metrics.RecordAuthAttempt(false)
			sendAuthError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		ctx := context.WithValue(r.Context(), sessionContextKey, sess)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetSession extracts the session from the request context, or nil.
func GetSession(ctx context.Context) *account.Session {
	sess, _ := ctx.Value(sessionContextKey).(*account.Session)
	return sess
}

// WithSession injects a session into a context. Used by tests.
func WithSession(ctx context.Context, sess *account.Session) context.Context {
	return context.WithValue(ctx, sessionContextKey, sess)
}

// HandleLogin handles POST /api/v1/auth/token.
func (a *Auth) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		metrics.RecordAuthAttempt(false)
		sendAuthError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Username == "" || req.Password == "" {
		metrics.RecordAuthAttempt(false)
		sendAuthError(w, http.StatusBadRequest, "username and password required")
		return
	}

	var (
		accountID      int
		hashedPassword string
		storagePath    string
		suspended      bool
		familyMember   bool
	)
	err := a.db.QueryRowContext(r.Context(),
		`SELECT id, password, storage_path, suspended, family_member FROM accounts WHERE username = $1`,
		req.Username).Scan(&accountID, &hashedPassword, &storagePath, &suspended, &familyMember)
	if err == sql.ErrNoRows {
		metrics.RecordAuthAttempt(false)
		logging.Warn("login failed: unknown user", zap.String("username", req.Username))
		sendAuthError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if err != nil {
		metrics.RecordAuthAttempt(false)
		logging.Error("login database error", zap.Error(err))
		sendAuthError(w, http.StatusInternalServerError, "database error")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(req.Password)); err != nil {
		metrics.RecordAuthAttempt(false)
		logging.Warn("login failed: invalid password", zap.String("username", req.Username))
		sendAuthError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	tokenStr, expiresAt, err := a.IssueToken(accountID, req.Username, storagePath, familyMember)
	if err != nil {
		metrics.RecordAuthAttempt(false)
		logging.Error("failed to sign token", zap.Error(err))
		sendAuthError(w, http.StatusInternalServerError, "failed to generate token")
		return
	}

	metrics.RecordAuthAttempt(true)
	logging.Info("login successful", zap.String("username", req.Username))

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"token":      tokenStr,
		"expires_at": expiresAt,
		"account": map[string]interface{}{
			"id":            accountID,
			"username":      req.Username,
			"family_member": familyMember,
		},
	})
}

// IssueToken generates a signed JWT for an account.
func (a *Auth) IssueToken(accountID int, username, storagePath string, familyMember bool) (string, time.Time, error) {
	now := time.Now()
	claims := &Claims{
		AccountID:    accountID,
		Username:     username,
		StoragePath:  storagePath,
		FamilyMember: familyMember,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(30 * 24 * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    "bytevault",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenStr, err := token.SignedString(a.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return tokenStr, claims.ExpiresAt.Time, nil
}

func (a *Auth) validateToken(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	return claims, nil
}

func extractToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	// Query parameter fallback for media players that cannot set headers
	return r.URL.Query().Get("token")
}

func sendAuthError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(protocol.ErrorResponse{
		Error: message,
		Code:  code,
	})
}
