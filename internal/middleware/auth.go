package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/leap-learning/leap-server/internal/utils/jwt"
	"github.com/leap-learning/leap-server/pkg/response"
)

const (
	userKey   = "user"
	userIDKey = "userId"
)

// User is the authenticated caller as loaded for each request.
type User struct {
	ID           uuid.UUID `gorm:"column:id;primaryKey" json:"id"`
	Email        string    `gorm:"column:email" json:"email"`
	FullName     string    `gorm:"column:full_name" json:"fullName"`
	ProfileImage string    `gorm:"column:profile_image" json:"profileImage"`
}

// TableName specifies the table name for the User model
func (User) TableName() string {
	return "users"
}

// Global instance to be initialized once at startup
var global *AuthMiddleware

// AuthMiddleware holds dependencies for authentication middleware
type AuthMiddleware struct {
	db        *gorm.DB
	jwtSecret string
	logger    *slog.Logger
}

// Initialize sets up the global middleware instance (call once at startup)
func Initialize(db *gorm.DB, jwtSecret string, logger *slog.Logger) {
	global = NewAuthMiddleware(db, jwtSecret, logger)
}

// NewAuthMiddleware creates an auth middleware instance. Tests use it directly.
func NewAuthMiddleware(db *gorm.DB, jwtSecret string, logger *slog.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		db:        db,
		jwtSecret: jwtSecret,
		logger:    logger,
	}
}

// AuthenticateToken validates the bearer token and loads the user into context
// before any handler touches data.
func (m *AuthMiddleware) AuthenticateToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := m.ensureAuthenticated(c); !ok {
			return
		}
		c.Next()
	}
}

// Authenticated returns the handler chain prefix for protected routes.
func (m *AuthMiddleware) Authenticated() []gin.HandlerFunc {
	return []gin.HandlerFunc{m.AuthenticateToken()}
}

// AuthenticateToken is the global version for simple authentication
func AuthenticateToken() gin.HandlerFunc {
	if global == nil {
		panic("middleware not initialized - call middleware.Initialize() first")
	}
	return global.AuthenticateToken()
}

// Authenticated is the global version of AuthMiddleware.Authenticated.
func Authenticated() []gin.HandlerFunc {
	if global == nil {
		panic("middleware not initialized - call middleware.Initialize() first")
	}
	return global.Authenticated()
}

// SetUser stores an authenticated user in the context.
func SetUser(c *gin.Context, usr *User) {
	c.Set(userKey, usr)
	c.Set(userIDKey, usr.ID)
}

// GetUserFromContext retrieves the authenticated user from the Gin context.
func GetUserFromContext(c *gin.Context) (*User, bool) {
	userVal, exists := c.Get(userKey)
	if !exists {
		return nil, false
	}

	if usr, ok := userVal.(*User); ok && usr != nil {
		return usr, true
	}

	return nil, false
}

// RequireUser returns the caller or writes 401 and aborts.
func RequireUser(c *gin.Context) (*User, bool) {
	usr, ok := GetUserFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "User not authenticated", nil)
		return nil, false
	}
	return usr, true
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) string {
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}

func (m *AuthMiddleware) ensureAuthenticated(c *gin.Context) (*User, bool) {
	if usr, ok := GetUserFromContext(c); ok {
		return usr, true
	}

	token := BearerToken(c.GetHeader("Authorization"))
	if token == "" {
		response.ErrorWithLog(m.logger, c, http.StatusUnauthorized, "No token provided", nil)
		return nil, false
	}

	claims, err := jwt.VerifyPurpose(token, m.jwtSecret, jwt.PurposeAccess)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrExpiredToken):
			response.ErrorWithLog(m.logger, c, http.StatusUnauthorized, "Token expired", err)
		default:
			response.ErrorWithLog(m.logger, c, http.StatusUnauthorized, "Invalid token", err)
		}
		return nil, false
	}

	if claims.UserID == uuid.Nil {
		response.ErrorWithLog(m.logger, c, http.StatusUnauthorized, "Invalid token payload", nil)
		return nil, false
	}

	var usr User
	if err := m.db.WithContext(c.Request.Context()).First(&usr, "id = ?", claims.UserID).Error; err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			response.ErrorWithLog(m.logger, c, http.StatusUnauthorized, "User not found", err)
		default:
			response.ErrorWithLog(m.logger, c, http.StatusInternalServerError, "Internal Server Error", err)
		}
		return nil, false
	}

	SetUser(c, &usr)
	return &usr, true
}
