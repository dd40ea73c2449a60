// Package auth authenticates moderators and admins for the decision APIs.
// End users never authenticate here; they are scoring subjects, not callers.
package auth

import (
	"errors"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"poolguard/internal/models"
	"poolguard/internal/repositories"
	"poolguard/internal/utils"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

type Service interface {
	Login(email, password string) (*models.Moderator, string, error)
	Logout(moderatorID uint) error
	TokenVersion(moderatorID uint) (int, error)
}

type service struct {
	moderators repositories.ModeratorRepository
	logger     *zap.Logger
}

func NewService(moderators repositories.ModeratorRepository, logger *zap.Logger) Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &service{moderators: moderators, logger: logger}
}

func (s *service) Login(email, password string) (*models.Moderator, string, error) {
	mod, err := s.moderators.GetByEmail(email)
	if err != nil {
		s.logger.Debug("login failed: moderator not found", zap.String("email", email))
		return nil, "", ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(mod.Password), []byte(password)); err != nil {
		s.logger.Debug("login failed: bad password", zap.Uint("moderator_id", mod.ID))
		return nil, "", ErrInvalidCredentials
	}

	token, err := utils.GenerateToken(&models.ModeratorClaims{
		ModeratorID:  mod.ID,
		Email:        mod.Email,
		Role:         mod.Role,
		TokenVersion: mod.TokenVersion,
	})
	if err != nil {
		s.logger.Error("failed to sign token", zap.Error(err))
		return nil, "", errors.New("error generating token")
	}

	return mod, token, nil
}

// Logout bumps the moderator's token version, invalidating outstanding tokens.
func (s *service) Logout(moderatorID uint) error {
	return s.moderators.IncrementTokenVersion(moderatorID)
}

func (s *service) TokenVersion(moderatorID uint) (int, error) {
	mod, err := s.moderators.GetByID(moderatorID)
	if err != nil {
		return 0, err
	}
	return mod.TokenVersion, nil
}
