package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/lib/pq"

	"rentmyparking/internal/db"
	apperrors "rentmyparking/internal/errors"
)

const accountColumns = `id, first_name, last_name, email, password_hash, phone, role,
	park_address, street_number, city, size, open_mechanism, electric_charge, note,
	available, created_at, updated_at`

// Columns an update may touch.
var updatableAccountColumns = map[string]bool{
	"first_name":      true,
	"last_name":       true,
	"password_hash":   true,
	"phone":           true,
	"role":            true,
	"park_address":    true,
	"street_number":   true,
	"city":            true,
	"size":            true,
	"open_mechanism":  true,
	"electric_charge": true,
	"note":            true,
}

// Field is one column assignment of a partial update.
type Field struct {
	Column string
	Value  interface{}
}

type AccountRepository struct {
	DB *sql.DB
}

func NewAccountRepository(db *sql.DB) *AccountRepository {
	return &AccountRepository{DB: db}
}

func scanAccount(row rowScanner) (*db.Account, error) {
	var a db.Account
	err := row.Scan(
		&a.ID, &a.FirstName, &a.LastName, &a.Email, &a.PasswordHash, &a.Phone, &a.Role,
		&a.ParkAddress, &a.StreetNumber, &a.City, &a.Size, &a.OpenMechanism, &a.ElectricCharge, &a.Note,
		&a.Available, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AccountRepository) Create(ctx context.Context, a *db.Account) error {
	query := `
		INSERT INTO accounts
		(id, first_name, last_name, email, password_hash, phone, role,
		 park_address, street_number, city, size, open_mechanism, electric_charge, note, available)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING created_at, updated_at`
	err := executor(ctx, r.DB).QueryRowContext(ctx, query,
		a.ID, a.FirstName, a.LastName, a.Email, a.PasswordHash, a.Phone, a.Role,
		a.ParkAddress, a.StreetNumber, a.City, a.Size, a.OpenMechanism, a.ElectricCharge, a.Note, a.Available,
	).Scan(&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return fmt.Errorf("account %s: %w", a.Email, apperrors.ErrEmailTaken)
		}
		return fmt.Errorf("error creating account: %w", err)
	}
	return nil
}

// GetByEmail matches the email exactly, case included.
func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*db.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE email = $1`
	a, err := scanAccount(executor(ctx, r.DB).QueryRowContext(ctx, query, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("account with email '%s': %w", email, apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("error querying account by email: %w", err)
	}
	return a, nil
}

func (r *AccountRepository) GetByID(ctx context.Context, id string) (*db.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	a, err := scanAccount(executor(ctx, r.DB).QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("account '%s': %w", id, apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("error querying account: %w", err)
	}
	return a, nil
}

// ListAll returns every account. Search filters them in memory.
func (r *AccountRepository) ListAll(ctx context.Context) ([]db.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts ORDER BY created_at`
	rows, err := executor(ctx, r.DB).QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error querying accounts: %w", err)
	}
	defer rows.Close()

	var accounts []db.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning account: %w", err)
		}
		accounts = append(accounts, *a)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error after iterating accounts: %w", err)
	}
	return accounts, nil
}

// UpdateFields writes only the given columns in one statement.
func (r *AccountRepository) UpdateFields(ctx context.Context, id string, fields []Field) error {
	if len(fields) == 0 {
		return nil
	}

	sets := make([]string, 0, len(fields)+1)
	args := make([]interface{}, 0, len(fields)+1)
	for i, f := range fields {
		if !updatableAccountColumns[f.Column] {
			return fmt.Errorf("column %q is not updatable: %w", f.Column, apperrors.ErrInvalidInput)
		}
		sets = append(sets, f.Column+" = $"+strconv.Itoa(i+1))
		args = append(args, f.Value)
	}
	sets = append(sets, "updated_at = NOW()")
	args = append(args, id)

	query := "UPDATE accounts SET " + strings.Join(sets, ", ") + " WHERE id = $" + strconv.Itoa(len(args))
	result, err := executor(ctx, r.DB).ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("error updating account %s: %w", id, err)
	}
	return expectOneRow(result, fmt.Sprintf("account '%s'", id))
}

func (r *AccountRepository) SetAvailable(ctx context.Context, id string, available bool) error {
	result, err := executor(ctx, r.DB).ExecContext(ctx,
		`UPDATE accounts SET available = $1, updated_at = NOW() WHERE id = $2`, available, id)
	if err != nil {
		return fmt.Errorf("error updating availability of %s: %w", id, err)
	}
	return expectOneRow(result, fmt.Sprintf("account '%s'", id))
}

func expectOneRow(result sql.Result, what string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("could not get rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, apperrors.ErrNotFound)
	}
	return nil
}
