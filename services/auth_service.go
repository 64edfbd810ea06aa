package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/Dosada05/tournament-engine/models"
	"github.com/Dosada05/tournament-engine/repositories"
)

const minPasswordLength = 8

type AuthService interface {
	Register(ctx context.Context, input RegisterInput) (*models.Organizer, error)
	Login(ctx context.Context, input LoginInput) (*models.Organizer, error)
	// EnsureAdmin creates the admin account when it does not exist yet.
	EnsureAdmin(ctx context.Context, email, password string) error
}

type RegisterInput struct {
	Email    string               `json:"email"`
	Name     string               `json:"name"`
	Password string               `json:"password"`
	Role     models.OrganizerRole `json:"role"`
}

type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authService struct {
	organizers repositories.OrganizerRepository
	logger     *slog.Logger
	cost       int
}

func NewAuthService(organizers repositories.OrganizerRepository, logger *slog.Logger) AuthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &authService{
		organizers: organizers,
		logger:     logger,
		cost:       bcrypt.DefaultCost,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *authService) Register(ctx context.Context, input RegisterInput) (*models.Organizer, error) {
	email := normalizeEmail(input.Email)
	if email == "" {
		return nil, ErrEmailRequired
	}
	if len(input.Password) < minPasswordLength {
		return nil, ErrPasswordTooShort
	}
	role := input.Role
	if role == "" {
		role = models.RoleOrganizer
	}
	if role != models.RoleOrganizer && role != models.RoleAdmin {
		return nil, fmt.Errorf("%w: unknown role %q", models.ErrValidation, role)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	o := &models.Organizer{
		Email:        email,
		Name:         strings.TrimSpace(input.Name),
		PasswordHash: string(hash),
		Role:         role,
	}
	if err := s.organizers.Create(ctx, o); err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "organizer registered", slog.Int("organizer_id", o.ID), slog.String("role", string(o.Role)))
	o.PasswordHash = ""
	return o, nil
}

func (s *authService) Login(ctx context.Context, input LoginInput) (*models.Organizer, error) {
	o, err := s.organizers.GetByEmail(ctx, normalizeEmail(input.Email))
	if err != nil {
		if errors.Is(err, repositories.ErrOrganizerNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to find organizer by email: %w", err)
	}

	err = bcrypt.CompareHashAndPassword([]byte(o.PasswordHash), []byte(input.Password))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to compare password hash: %w", err)
	}

	o.PasswordHash = ""
	return o, nil
}

func (s *authService) EnsureAdmin(ctx context.Context, email, password string) error {
	if email == "" {
		return nil
	}
	_, err := s.organizers.GetByEmail(ctx, normalizeEmail(email))
	if err == nil {
		return nil
	}
	if !errors.Is(err, repositories.ErrOrganizerNotFound) {
		return err
	}
	_, err = s.Register(ctx, RegisterInput{Email: email, Name: "Administrator", Password: password, Role: models.RoleAdmin})
	if errors.Is(err, repositories.ErrOrganizerEmailConflict) {
		return nil
	}
	return err
}
