package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/maheshrc27/broadcast/internal/models"
	"github.com/maheshrc27/broadcast/internal/repository"
)

type UserService interface {
	GetAccount(ctx context.Context, id int64) (*models.Account, error)
}

type userService struct {
	u     repository.UserRepository
	quota QuotaService
}

func NewUserService(u repository.UserRepository, quota QuotaService) UserService {
	return &userService{
		u:     u,
		quota: quota,
	}
}

func (s *userService) GetAccount(ctx context.Context, id int64) (*models.Account, error) {
	if id == 0 {
		return nil, ErrUnauthorized
	}

	user, isExist, err := s.u.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("Error getting user info")
	}
	if !isExist {
		err = errors.New("User not found")
		slog.Info(err.Error())
		return nil, notFound("User doesn't exist")
	}

	profile, err := s.quota.Profile(ctx, id)
	if err != nil {
		return nil, err
	}

	return &models.Account{User: user, Profile: profile}, nil
}
