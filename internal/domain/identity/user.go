package identity

import (
	"regexp"
	"strings"
	"time"

	"github.com/flipflop/backend/internal/domain/shared"
	"golang.org/x/crypto/bcrypt"
)

var (
	emailRegex  = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	letterRegex = regexp.MustCompile(`[a-zA-Z]`)
	digitRegex  = regexp.MustCompile(`[0-9]`)
)

// User is a shop customer or administrator
type User struct {
	shared.BaseAggregateRoot
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	Phone        string
	IsAdmin      bool
	IsActive     bool
	Preferences  map[string]any
}

// NewUser registers a new active customer
func NewUser(email, password, firstName, lastName string) (*User, error) {
	email = NormalizeEmail(email)
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if err := validatePassword(password); err != nil {
		return nil, err
	}
	hash, err := hashPassword(password)
	if err != nil {
		return nil, err
	}

	u := &User{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Email:             email,
		PasswordHash:      hash,
		FirstName:         strings.TrimSpace(firstName),
		LastName:          strings.TrimSpace(lastName),
		IsActive:          true,
		Preferences:       map[string]any{},
	}
	u.AddDomainEvent(NewUserRegisteredEvent(u))
	return u, nil
}

// NormalizeEmail lowercases and trims an email address
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// FullName joins first and last name
func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// UpdateProfile changes the personal details of the user
func (u *User) UpdateProfile(firstName, lastName, phone string, preferences map[string]any) error {
	if len(phone) > 50 {
		return shared.NewDomainError("INVALID_PHONE", "Phone cannot exceed 50 characters")
	}
	u.FirstName = strings.TrimSpace(firstName)
	u.LastName = strings.TrimSpace(lastName)
	u.Phone = strings.TrimSpace(phone)
	if preferences != nil {
		u.Preferences = preferences
	}
	u.touch()
	return nil
}

// ChangePassword replaces the password after verifying the current one
func (u *User) ChangePassword(oldPassword, newPassword string) error {
	if !u.VerifyPassword(oldPassword) {
		return shared.NewDomainError("INVALID_PASSWORD", "Current password is incorrect")
	}
	if err := validatePassword(newPassword); err != nil {
		return err
	}
	hash, err := hashPassword(newPassword)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	u.touch()
	return nil
}

// VerifyPassword reports whether password matches the stored hash
func (u *User) VerifyPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}

// GrantAdmin gives the user access to admin routes
func (u *User) GrantAdmin() {
	u.IsAdmin = true
	u.touch()
}

// RevokeAdmin removes admin access
func (u *User) RevokeAdmin() {
	u.IsAdmin = false
	u.touch()
}

// Deactivate blocks the user from authenticating
func (u *User) Deactivate() {
	u.IsActive = false
	u.touch()
}

// Activate re-enables a deactivated user
func (u *User) Activate() {
	u.IsActive = true
	u.touch()
}

func (u *User) touch() {
	u.UpdatedAt = time.Now()
	u.IncrementVersion()
}

func validatePassword(password string) error {
	if len(password) < 8 {
		return shared.NewDomainError("INVALID_PASSWORD", "Password must be at least 8 characters")
	}
	if len(password) > 72 {
		return shared.NewDomainError("INVALID_PASSWORD", "Password cannot exceed 72 characters")
	}
	if !letterRegex.MatchString(password) || !digitRegex.MatchString(password) {
		return shared.NewDomainError("INVALID_PASSWORD", "Password must contain at least one letter and one number")
	}
	return nil
}

func validateEmail(email string) error {
	if len(email) > 255 {
		return shared.NewDomainError("INVALID_EMAIL", "Email cannot exceed 255 characters")
	}
	if !emailRegex.MatchString(email) {
		return shared.NewDomainError("INVALID_EMAIL", "Invalid email format")
	}
	return nil
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
