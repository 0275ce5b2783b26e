package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"portal/internal/app/apperr"
	"portal/internal/app/ds"
	"portal/internal/app/role"
)

func (r *Repository) GetUserByID(ctx context.Context, id uint) (*ds.User, error) {
	var user ds.User
	err := r.db.WithContext(ctx).First(&user, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("user", id)
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *Repository) GetUserByLogin(ctx context.Context, login string) (*ds.User, error) {
	var user ds.User
	err := r.db.WithContext(ctx).Where("login = ?", login).First(&user).Error
	if err != nil {
		return nil, fmt.Errorf("get user %q: %w", login, err)
	}
	return &user, nil
}

func (r *Repository) CreateUser(ctx context.Context, login, password, fullName string, userRole role.Role) (*ds.User, error) {
	user := ds.User{
		Login:    login,
		Password: password,
		FullName: fullName,
		Role:     userRole,
	}

	err := r.db.WithContext(ctx).Create(&user).Error
	if err != nil {
		return nil, err
	}

	return &user, nil
}
