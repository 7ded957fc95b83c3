package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/brightline-agency/agency/internal/auth"
	"github.com/brightline-agency/agency/internal/models"
)

// accountKey is where the authenticated account lives in the gin context
const accountKey = "account"

var (
	ErrMissingAuthHeader = errors.New("missing authorization header")
	ErrInvalidAuthFormat = errors.New("invalid authorization header format")
	ErrEmptyToken        = errors.New("empty token")
	ErrInvalidToken      = errors.New("invalid token")
	ErrUserNotFound      = errors.New("user not found")
)

// Client-facing messages for header problems
var headerMessages = map[error]string{
	ErrMissingAuthHeader: "Missing authorization header",
	ErrInvalidAuthFormat: "Invalid authorization header format",
	ErrEmptyToken:        "Empty token",
}

// bearerToken pulls the credential out of an Authorization header value
func bearerToken(header string) (string, error) {
	if header == "" {
		return "", ErrMissingAuthHeader
	}

	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", ErrInvalidAuthFormat
	}
	if token = strings.TrimSpace(token); token == "" {
		return "", ErrEmptyToken
	}
	return token, nil
}

func abortWithError(c *gin.Context, log zerolog.Logger, status int, err error, message string) {
	log.Warn().
		Err(err).
		Str("path", c.Request.URL.Path).
		Int("status", status).
		Msg(message)
	c.AbortWithStatusJSON(status, gin.H{"error": message})
}

// accountFrom returns the account JWTAuthMiddleware attached to the request
func accountFrom(c *gin.Context) (*models.Account, bool) {
	value, exists := c.Get(accountKey)
	if !exists {
		return nil, false
	}
	account, ok := value.(*models.Account)
	return account, ok
}

// JWTAuthMiddleware validates bearer tokens and loads the account they name.
// Every rejection is a 401, which the client treats as the end of its session.
func JWTAuthMiddleware(db *gorm.DB, issuer *auth.Issuer, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := bearerToken(c.GetHeader("Authorization"))
		if err != nil {
			abortWithError(c, log, http.StatusUnauthorized, err, headerMessages[err])
			return
		}

		claims, err := issuer.ValidateToken(token)
		if err != nil {
			log.Debug().Err(err).Msg("Rejected bearer token")
			abortWithError(c, log, http.StatusUnauthorized, ErrInvalidToken, "Invalid or expired token")
			return
		}

		// A token outlives neither its account nor a role change
		var account models.Account
		if err := models.FindByID(db, claims.UserID, &account); err != nil {
			abortWithError(c, log, http.StatusUnauthorized, ErrUserNotFound, "User not found")
			return
		}

		c.Set(accountKey, &account)
		c.Next()
	}
}

// AdminOnlyMiddleware lets only admins through; it must run after JWTAuthMiddleware
func AdminOnlyMiddleware(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		account, ok := accountFrom(c)
		if !ok {
			abortWithError(c, log, http.StatusUnauthorized, errors.New("no account in context"), "Unauthorized")
			return
		}

		if account.Role != models.RoleAdmin {
			abortWithError(c, log, http.StatusForbidden, errors.New("role "+string(account.Role)), "Admin access required")
			return
		}

		c.Next()
	}
}
