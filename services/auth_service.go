package services

import (
	"fmt"

	"github.com/bekarys-dev/championship-system/utils"
)

// AuthService gates admin operations behind the season's shared key. This
// is a capability check, not an account system: one key, compared against a
// bcrypt hash produced at startup.
type AuthService interface {
	VerifyAdminKey(key string) error
}

type authService struct {
	adminKeyHash string
}

func NewAuthService(adminKey string) (AuthService, error) {
	hash, err := utils.HashKey(adminKey)
	if err != nil {
		return nil, fmt.Errorf("failed to hash admin key: %w", err)
	}
	return &authService{adminKeyHash: hash}, nil
}

func (s *authService) VerifyAdminKey(key string) error {
	if !utils.CheckKeyHash(key, s.adminKeyHash) {
		return ErrAuthInvalidKey
	}
	return nil
}
