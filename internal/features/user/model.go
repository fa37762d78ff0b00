package user

import (
	"errors"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/leap-learning/leap-server/pkg/types"
)

// MinPasswordLength is the shortest password accepted on register or change.
const MinPasswordLength = 8

const bcryptCost = 10

// User is a learner account. Courses, progress and certificates hang off its id.
type User struct {
	types.BaseModel

	FullName     string  `gorm:"type:varchar(120);not null;column:full_name" json:"fullName"`
	Email        string  `gorm:"type:varchar(255);not null;uniqueIndex" json:"email"`
	Password     string  `gorm:"type:varchar(255);not null" json:"-"`
	ProfileImage string  `gorm:"type:text;column:profile_image" json:"profileImage,omitempty"`
	RefreshToken *string `gorm:"type:text;column:refresh_token" json:"-"`
}

// TableName overrides the default table name.
func (User) TableName() string { return "users" }

// CreateInput carries data for creating a new user.
type CreateInput struct {
	FullName     string
	Email        string
	Password     string
	ProfileImage string
}

// UpdateInput captures the fields a user may change on their own profile.
type UpdateInput struct {
	FullName     *string
	ProfileImage *string
	Password     *string
}

// NormalizeEmail lower-cases and trims an address for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Get retrieves a user by ID.
func Get(db *gorm.DB, id uuid.UUID) (User, error) {
	var user User
	if err := db.First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return user, ErrUserNotFound
		}
		return user, err
	}
	return user, nil
}

// GetByEmail retrieves a user by email, case-insensitively.
func GetByEmail(db *gorm.DB, email string) (User, error) {
	var user User
	if err := db.First(&user, "email = ?", NormalizeEmail(email)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return user, ErrUserNotFound
		}
		return user, err
	}
	return user, nil
}

// Create inserts a new user with a hashed password.
func Create(db *gorm.DB, input CreateInput) (User, error) {
	name := strings.TrimSpace(input.FullName)
	if name == "" {
		return User{}, ErrNameRequired
	}
	hashed, err := hashPassword(input.Password)
	if err != nil {
		return User{}, err
	}

	email := NormalizeEmail(input.Email)
	if _, err := GetByEmail(db, email); err == nil {
		return User{}, ErrEmailTaken
	} else if !errors.Is(err, ErrUserNotFound) {
		return User{}, err
	}

	user := User{
		FullName:     name,
		Email:        email,
		Password:     hashed,
		ProfileImage: strings.TrimSpace(input.ProfileImage),
	}
	if err := db.Create(&user).Error; err != nil {
		if isUniqueViolation(err) {
			return User{}, ErrEmailTaken
		}
		return User{}, err
	}
	return user, nil
}

// Update modifies an existing user. A password change also revokes the stored refresh token.
func Update(db *gorm.DB, id uuid.UUID, input UpdateInput) (User, error) {
	if _, err := Get(db, id); err != nil {
		return User{}, err
	}

	updates := map[string]interface{}{}
	if input.FullName != nil {
		trimmed := strings.TrimSpace(*input.FullName)
		if trimmed == "" {
			return User{}, ErrNameRequired
		}
		updates["full_name"] = trimmed
	}
	if input.ProfileImage != nil {
		updates["profile_image"] = strings.TrimSpace(*input.ProfileImage)
	}
	if input.Password != nil {
		hashed, err := hashPassword(*input.Password)
		if err != nil {
			return User{}, err
		}
		updates["password"] = hashed
		updates["refresh_token"] = nil
	}

	if len(updates) > 0 {
		if err := db.Model(&User{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			return User{}, err
		}
	}
	return Get(db, id)
}

// SetRefreshToken stores the refresh token currently valid for the user. nil revokes it.
func SetRefreshToken(db *gorm.DB, id uuid.UUID, token *string) error {
	result := db.Model(&User{}).Where("id = ?", id).Update("refresh_token", token)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// ComparePassword checks if the provided password matches the user's hashed password.
func (u *User) ComparePassword(password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password))
	return err == nil
}

func hashPassword(password string) (string, error) {
	if len(password) < MinPasswordLength {
		return "", ErrInvalidPassword
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "unique constraint")
}
