package repository

import (
	"context"

	"userAuthService/models"
)

// UserRepositoryI defines operations on User entities.
type UserRepositoryI interface {
	Create(ctx context.Context, u *models.User) (*models.User, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	GetByCredentials(ctx context.Context, username, passwordHash string) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)
	ListAll(ctx context.Context) ([]models.User, error)
}

var _ UserRepositoryI = (*UserRepository)(nil)
