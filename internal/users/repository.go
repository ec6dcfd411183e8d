package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/carebridge/telehealth-platform/internal/postgres"
)

// Repository loads and stores user rows.
type Repository struct {
	pool postgres.Pool
}

// NewRepository creates a repository backed by pgx.
func NewRepository(pool postgres.Pool) *Repository {
	if pool == nil {
		panic("users: pgx pool required")
	}
	return &Repository{pool: pool}
}

const userColumns = `id, email, name, role, credits, specialty, experience, credential_url, description, verification_status, created_at`

// GetByID fetches a user by id.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return r.scanOne(r.pool.QueryRow(ctx, query, id))
}

// GetVerifiedDoctor fetches a user that is a VERIFIED doctor, or
// ErrNotDoctor if the user exists but is not one.
func (r *Repository) GetVerifiedDoctor(ctx context.Context, id uuid.UUID) (*User, error) {
	u, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !u.IsVerifiedDoctor() {
		return nil, ErrNotDoctor
	}
	return u, nil
}

// ListVerifiedDoctors returns verified doctors, optionally filtered by
// specialty, ordered by name.
func (r *Repository) ListVerifiedDoctors(ctx context.Context, specialty string) ([]*User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE role = 'DOCTOR' AND verification_status = 'VERIFIED'
	`
	args := []any{}
	if specialty != "" {
		query += ` AND specialty = $1`
		args = append(args, specialty)
	}
	query += ` ORDER BY name ASC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("users: list doctors: %w", err)
	}
	defer rows.Close()

	var doctors []*User
	for rows.Next() {
		u, err := r.scanRow(rows)
		if err != nil {
			return nil, err
		}
		doctors = append(doctors, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("users: list doctors: %w", err)
	}
	return doctors, nil
}

// UpdateRoleParams carries the onboarding choice. Doctor fields are
// required when Role is DOCTOR and ignored otherwise.
type UpdateRoleParams struct {
	Role          Role
	Specialty     string
	Experience    int
	CredentialURL string
	Description   string
}

// UpdateRole records the user's onboarding choice. Choosing DOCTOR stores
// the application profile and puts the account into PENDING verification;
// an admin flips it to VERIFIED before the doctor can take bookings.
func (r *Repository) UpdateRole(ctx context.Context, id uuid.UUID, p UpdateRoleParams) (*User, error) {
	switch p.Role {
	case RolePatient:
		return r.scanOne(r.pool.QueryRow(ctx, `
			UPDATE users SET role = $1
			WHERE id = $2
			RETURNING `+userColumns,
			RolePatient, id,
		))
	case RoleDoctor:
		if p.Specialty == "" || p.Experience <= 0 || p.CredentialURL == "" || p.Description == "" {
			return nil, ErrInvalidRole
		}
		return r.scanOne(r.pool.QueryRow(ctx, `
			UPDATE users
			SET role = $1, specialty = $2, experience = $3, credential_url = $4,
			    description = $5, verification_status = $6
			WHERE id = $7
			RETURNING `+userColumns,
			RoleDoctor, p.Specialty, p.Experience, p.CredentialURL, p.Description,
			VerificationPending, id,
		))
	default:
		return nil, ErrInvalidRole
	}
}

func (r *Repository) scanOne(row pgx.Row) (*User, error) {
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("users: select: %w", err)
	}
	return u, nil
}

func (r *Repository) scanRow(rows pgx.Rows) (*User, error) {
	u, err := scanUser(rows)
	if err != nil {
		return nil, fmt.Errorf("users: scan: %w", err)
	}
	return u, nil
}

func scanUser(row pgx.Row) (*User, error) {
	var u User
	if err := row.Scan(
		&u.ID,
		&u.Email,
		&u.Name,
		&u.Role,
		&u.Credits,
		&u.Specialty,
		&u.Experience,
		&u.CredentialURL,
		&u.Description,
		&u.VerificationStatus,
		&u.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &u, nil
}
