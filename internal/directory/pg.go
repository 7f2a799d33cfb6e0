package directory

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Pg resolves doctors and patients from the clinic's user-management
// database, for deployments where the directory already lives in Postgres.
type Pg struct {
	pool *pgxpool.Pool
}

func NewPg(pool *pgxpool.Pool) *Pg {
	return &Pg{pool: pool}
}

func (r *Pg) ResolveDoctor(ctx context.Context, id string) (*Doctor, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, specialty
		FROM doctors
		WHERE id = $1
	`, id)
	return scanDoctor(row, id)
}

func (r *Pg) ResolvePatient(ctx context.Context, id string) (*Patient, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, email
		FROM patients
		WHERE id = $1
	`, id)
	return scanPatient(row, id)
}

func scanDoctor(row pgx.Row, id string) (*Doctor, error) {
	var d Doctor
	var specialty *string

	if err := row.Scan(&d.ID, &d.Name, &specialty); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrDoctorNotFound, id)
		}
		return nil, err
	}
	if specialty != nil {
		d.Specialty = *specialty
	}
	return &d, nil
}

func scanPatient(row pgx.Row, id string) (*Patient, error) {
	var p Patient
	var email *string

	if err := row.Scan(&p.ID, &p.Name, &email); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrPatientNotFound, id)
		}
		return nil, err
	}
	if email != nil {
		p.Email = *email
	}
	return &p, nil
}
