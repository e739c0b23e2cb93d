package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/adnanh27/postbridge/internal/models"
	"github.com/adnanh27/postbridge/internal/repository"
)

type AuthService interface {
	LoginURL(state string) (string, error)
	LoginCallback(ctx context.Context, code string) (userID, orgID int64, err error)
}

type authService struct {
	google GoogleService
	u      repository.UserRepository
}

func NewAuthService(google GoogleService, u repository.UserRepository) AuthService {
	return &authService{
		google: google,
		u:      u,
	}
}

func (s *authService) LoginURL(state string) (string, error) {
	authURL, err := s.google.GenerateAuthURL(state)
	if err != nil {
		return "", err
	}
	return authURL.URL, nil
}

func (s *authService) LoginCallback(ctx context.Context, code string) (userID, orgID int64, err error) {
	if code == "" {
		err = errors.New("code is empty")
		slog.Info(err.Error())
		return 0, 0, err
	}

	result := s.google.HandleCallback(ctx, code, "")
	if !result.Success {
		return 0, 0, errors.New(result.Error)
	}

	user, isExist, err := s.u.GetByEmail(ctx, result.Profile.Username)
	if err != nil {
		return 0, 0, err
	}

	if isExist {
		return user.ID, user.OrgID, nil
	}

	userID, err = s.u.Create(ctx, nil, &models.User{
		GoogleID:       result.Profile.PlatformUserID,
		Email:          result.Profile.Username,
		Name:           result.Profile.Name,
		ProfilePicture: result.Profile.AvatarURL,
	})
	if err != nil {
		slog.Info(err.Error())
		return 0, 0, err
	}

	// First login creates a personal organization keyed by the user id.
	if err := s.u.SetOrgID(ctx, userID, userID); err != nil {
		return 0, 0, err
	}

	return userID, userID, nil
}
