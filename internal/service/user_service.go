package service

import (
	"context"
	"errors"
	"strings"

	"github.com/stash-it/backend/internal/model"
	"github.com/stash-it/backend/internal/repository"
	"gorm.io/gorm"
)

type UserService interface {
	Get(ctx context.Context, id string) (*model.User, error)
	UpdateProfile(ctx context.Context, id, name, college string) (*model.User, error)
}

type userService struct {
	repo repository.UserRepository
}

func NewUserService(repo repository.UserRepository) UserService {
	return &userService{repo: repo}
}

func (s *userService) Get(ctx context.Context, id string) (*model.User, error) {
	u, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return u, nil
}

func (s *userService) UpdateProfile(ctx context.Context, id, name, college string) (*model.User, error) {
	u, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("name is required")
	}
	u.Name = name
	u.College = strings.TrimSpace(college)
	if err := s.repo.Update(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}
