package crm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"sales-crm/internal/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Authenticate comprueba usuario y contraseña. Un usuario inactivo no puede entrar.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	var u models.User
	err := s.db.WithContext(ctx).Where("username = ?", username).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	if !u.Active {
		return nil, ErrInvalidCredentials
	}
	return &u, nil
}

// GetUser carga un usuario activo; lo usa el middleware de sesión.
func (s *Service) GetUser(ctx context.Context, id uint) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).Where("active = ?", true).First(&u, id).Error; err != nil {
		return nil, notFound(err, "user")
	}
	return &u, nil
}

// ListUsers: usuarios activos, para los selectores de responsable.
// El vendedor sólo se ve a sí mismo.
func (s *Service) ListUsers(ctx context.Context, v Viewer) ([]models.User, error) {
	q := s.conn(ctx, v).Where("active = ?", true).Order("full_name asc")
	if !v.IsManager() {
		q = q.Where("id = ?", v.UserID)
	}
	users := []models.User{}
	if err := q.Find(&users).Error; err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}
