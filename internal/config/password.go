package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"golang.org/x/crypto/bcrypt"
)

// ErrNoAdminPassword is returned by VerifyAdmin when ADMIN_PASSWORD_HASH is unset.
var ErrNoAdminPassword = errors.New("ADMIN_PASSWORD_HASH is not set")

// PasswordConfig holds configuration for hashing and checking the API admin
// password.
type PasswordConfig struct {
	BcryptCost int
	Pepper     string // optional global secret appended before hashing
	AdminHash  string // bcrypt hash accepted by POST /auth/token
}

// NewPasswordConfig creates a password configuration from environment
// variables. It reads BCRYPT_COST (default: 12), PASSWORD_PEPPER and
// ADMIN_PASSWORD_HASH.
func NewPasswordConfig() (*PasswordConfig, error) {
	costStr := os.Getenv("BCRYPT_COST")
	if costStr == "" {
		costStr = "12"
	}

	cost, err := strconv.Atoi(costStr)
	if err != nil {
		return nil, fmt.Errorf("invalid BCRYPT_COST: %v", err)
	}

	config := &PasswordConfig{
		BcryptCost: cost,
		Pepper:     os.Getenv("PASSWORD_PEPPER"),
		AdminHash:  os.Getenv("ADMIN_PASSWORD_HASH"),
	}

	if err := config.normalize(); err != nil {
		return nil, err
	}

	return config, nil
}

func (c *PasswordConfig) normalize() error {
	if c.BcryptCost < 10 || c.BcryptCost > 14 {
		return fmt.Errorf("bcrypt cost out of range: %d (must be 10-14)", c.BcryptCost)
	}
	return nil
}

func (c *PasswordConfig) peppered(pw string) []byte {
	return []byte(pw + c.Pepper)
}

// HashPassword hashes a password using bcrypt (with optional pepper).
func (c *PasswordConfig) HashPassword(pw string) (string, error) {
	if pw == "" {
		return "", fmt.Errorf("password cannot be empty")
	}
	hash, err := bcrypt.GenerateFromPassword(c.peppered(pw), c.BcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// VerifyPassword verifies a password against a stored hash (with optional pepper).
func (c *PasswordConfig) VerifyPassword(pw, storedHash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(storedHash), c.peppered(pw)) == nil
}

// VerifyAdmin checks pw against AdminHash.
func (c *PasswordConfig) VerifyAdmin(pw string) (bool, error) {
	if c.AdminHash == "" {
		return false, ErrNoAdminPassword
	}
	return c.VerifyPassword(pw, c.AdminHash), nil
}
