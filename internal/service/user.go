package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/yourname/skilltracker/internal"
	"github.com/yourname/skilltracker/internal/storage"
	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials is returned by Login for an unknown email or a wrong
// password; callers must not reveal which.
var ErrInvalidCredentials = errors.New("invalid credentials")

type RegisterRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func Register(ctx context.Context, repo storage.UserRepository, body *RegisterRequest) (*internal.User, error) {
	body.Name = strings.TrimSpace(body.Name)
	body.Email = strings.ToLower(strings.TrimSpace(body.Email))
	if err := validate.Struct(body); err != nil {
		return nil, fmt.Errorf("%w: %v", internal.ErrValidation, err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(body.Password), 10)
	if err != nil {
		return nil, err
	}

	user := &internal.User{
		ID:           uuid.NewString(),
		Name:         body.Name,
		Email:        body.Email,
		PasswordHash: string(hash),
		CreatedAt:    time.Now(),
	}
	if err := repo.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func Login(ctx context.Context, repo storage.UserRepository, body *LoginRequest) (*internal.User, error) {
	body.Email = strings.ToLower(strings.TrimSpace(body.Email))
	if err := validate.Struct(body); err != nil {
		return nil, fmt.Errorf("%w: %v", internal.ErrValidation, err)
	}

	user, err := repo.GetUserByEmail(ctx, body.Email)
	if err != nil {
		if errors.Is(err, internal.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(body.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}
