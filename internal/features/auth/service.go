package auth

import (
	"errors"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/leap-learning/leap-server/internal/features/user"
	"github.com/leap-learning/leap-server/internal/utils/jwt"
)

type RegisterInput struct {
	FullName     string
	Email        string
	Password     string
	ProfileImage string
}

type LoginInput struct {
	Email    string
	Password string
}

type AuthResponse struct {
	User         user.User `json:"user"`
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken"`
}

// Config carries token secrets and lifetimes plus the link target for reset emails.
type Config struct {
	Tokens      jwt.TokenConfig
	ResetTTL    time.Duration
	FrontendURL string
}

// PasswordResetInfo contains data for sending a password reset email.
type PasswordResetInfo struct {
	Email    string
	FullName string
	Link     string
}

var emailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Register creates a new account and signs the user in.
func Register(db *gorm.DB, input RegisterInput, cfg Config) (*AuthResponse, error) {
	if !emailRegex.MatchString(strings.TrimSpace(input.Email)) {
		return nil, ErrInvalidEmail
	}

	newUser, err := user.Create(db, user.CreateInput{
		FullName:     input.FullName,
		Email:        input.Email,
		Password:     input.Password,
		ProfileImage: input.ProfileImage,
	})
	if err != nil {
		return nil, err
	}
	return signIn(db, newUser, cfg)
}

// Login authenticates a user and returns tokens.
func Login(db *gorm.DB, input LoginInput, cfg Config) (*AuthResponse, error) {
	usr, err := user.GetByEmail(db, input.Email)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !usr.ComparePassword(input.Password) {
		return nil, ErrInvalidCredentials
	}
	return signIn(db, usr, cfg)
}

func signIn(db *gorm.DB, usr user.User, cfg Config) (*AuthResponse, error) {
	pair, err := jwt.IssuePair(usr.ID, cfg.Tokens)
	if err != nil {
		return nil, err
	}
	if err := user.SetRefreshToken(db, usr.ID, &pair.RefreshToken); err != nil {
		return nil, err
	}
	return &AuthResponse{
		User:         usr,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	}, nil
}

// Logout revokes the caller's refresh token.
func Logout(db *gorm.DB, userID uuid.UUID) error {
	return user.SetRefreshToken(db, userID, nil)
}

// RefreshAccessToken rotates the token pair. The presented refresh token must be
// the one last stored for the user.
func RefreshAccessToken(db *gorm.DB, refreshToken string, cfg Config) (*jwt.TokenPair, error) {
	claims, err := jwt.VerifyPurpose(refreshToken, cfg.Tokens.RefreshSecret, jwt.PurposeRefresh)
	if err != nil {
		return nil, ErrInvalidToken
	}

	usr, err := user.Get(db, claims.UserID)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	if usr.RefreshToken == nil || *usr.RefreshToken != refreshToken {
		return nil, ErrInvalidToken
	}

	pair, err := jwt.IssuePair(usr.ID, cfg.Tokens)
	if err != nil {
		return nil, err
	}
	if err := user.SetRefreshToken(db, usr.ID, &pair.RefreshToken); err != nil {
		return nil, err
	}
	return &pair, nil
}

// RequestPasswordReset signs a reset token for the account behind email. It
// returns nil without error when no such account exists.
func RequestPasswordReset(db *gorm.DB, email string, cfg Config) (*PasswordResetInfo, error) {
	if !emailRegex.MatchString(strings.TrimSpace(email)) {
		return nil, ErrInvalidEmail
	}

	usr, err := user.GetByEmail(db, email)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			return nil, nil
		}
		return nil, err
	}

	token, err := jwt.GeneratePurposeToken(usr.ID, jwt.PurposePasswordReset, cfg.Tokens.AccessSecret, cfg.ResetTTL)
	if err != nil {
		return nil, err
	}

	return &PasswordResetInfo{
		Email:    usr.Email,
		FullName: usr.FullName,
		Link:     resetLink(cfg.FrontendURL, token),
	}, nil
}

// ResetPassword sets a new password from a reset token and revokes the refresh token.
func ResetPassword(db *gorm.DB, token, newPassword string, cfg Config) error {
	claims, err := jwt.VerifyPurpose(strings.TrimSpace(token), cfg.Tokens.AccessSecret, jwt.PurposePasswordReset)
	if err != nil {
		return ErrInvalidToken
	}

	_, err = user.Update(db, claims.UserID, user.UpdateInput{Password: &newPassword})
	if errors.Is(err, user.ErrUserNotFound) {
		return ErrInvalidToken
	}
	return err
}

func resetLink(base, token string) string {
	return strings.TrimRight(base, "/") + "/reset-password?token=" + url.QueryEscape(token)
}
