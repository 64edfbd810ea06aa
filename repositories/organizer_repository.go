package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/tournament-engine/models"
)

var (
	ErrOrganizerNotFound      = fmt.Errorf("%w: organizer", models.ErrNotFound)
	ErrOrganizerEmailConflict = fmt.Errorf("%w: organizer email already registered", models.ErrStateConflict)
)

type OrganizerRepository interface {
	Create(ctx context.Context, o *models.Organizer) error
	GetByEmail(ctx context.Context, email string) (*models.Organizer, error)
}

type postgresOrganizerRepository struct {
	db *sql.DB
}

func NewPostgresOrganizerRepository(db *sql.DB) OrganizerRepository {
	return &postgresOrganizerRepository{db: db}
}

func (r *postgresOrganizerRepository) Create(ctx context.Context, o *models.Organizer) error {
	query := `
		INSERT INTO organizers (email, name, password_hash, role)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query, o.Email, o.Name, o.PasswordHash, o.Role).Scan(&o.ID, &o.CreatedAt)
	if err != nil {
		if isUniqueViolation(err, "organizers_email_key") {
			return ErrOrganizerEmailConflict
		}
		return fmt.Errorf("failed to create organizer: %w", err)
	}
	return nil
}

func (r *postgresOrganizerRepository) GetByEmail(ctx context.Context, email string) (*models.Organizer, error) {
	query := `
		SELECT id, email, name, password_hash, role, created_at
		FROM organizers
		WHERE email = $1`

	var o models.Organizer
	err := r.db.QueryRowContext(ctx, query, email).Scan(
		&o.ID, &o.Email, &o.Name, &o.PasswordHash, &o.Role, &o.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrganizerNotFound
		}
		return nil, fmt.Errorf("failed to get organizer by email: %w", err)
	}
	return &o, nil
}
