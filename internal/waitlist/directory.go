package waitlist

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clearbrook/scheduler/internal/scheduling"
)

type directoryDB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PGDirectory resolves patient contacts from the local patients table.
type PGDirectory struct {
	db directoryDB
}

// NewPGDirectory initializes a directory backed by pgxpool.
func NewPGDirectory(pool *pgxpool.Pool) *PGDirectory {
	if pool == nil {
		panic("waitlist: pgx pool required")
	}
	return &PGDirectory{db: pool}
}

// NewPGDirectoryWithDB allows injecting a mock database for testing.
func NewPGDirectoryWithDB(db directoryDB) *PGDirectory {
	return &PGDirectory{db: db}
}

// GetPatient returns the contact snapshot for a patient.
func (d *PGDirectory) GetPatient(ctx context.Context, id uuid.UUID) (scheduling.Patient, error) {
	var p scheduling.Patient
	err := d.db.QueryRow(ctx,
		`SELECT id, name, email, phone FROM patients WHERE id = $1`, id,
	).Scan(&p.ID, &p.Name, &p.Email, &p.Phone)
	if err != nil {
		if err == pgx.ErrNoRows {
			return scheduling.Patient{}, fmt.Errorf("waitlist: patient %s not found", id)
		}
		return scheduling.Patient{}, fmt.Errorf("waitlist: lookup patient: %w", err)
	}
	return p, nil
}
