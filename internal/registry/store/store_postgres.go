package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"siren/internal/registry/models"
	id "siren/pkg/domain"
	"siren/pkg/platform/sentinel"
	"siren/pkg/platform/tx"
)

//go:embed schema.sql
var schema string

const uniqueViolation = pq.ErrorCode("23505")

// PostgresRecordStore persists business records in PostgreSQL.
type PostgresRecordStore struct {
	db *sql.DB
}

func NewPostgresRecordStore(db *sql.DB) *PostgresRecordStore {
	return &PostgresRecordStore{db: db}
}

type executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// conn joins the caller's transaction when ctx carries one.
func (s *PostgresRecordStore) conn(ctx context.Context) executor {
	if t, ok := tx.From(ctx); ok {
		return t
	}
	return s.db
}

// Migrate creates the business_records table when missing.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply business_records schema: %w", err)
	}
	return nil
}

const recordColumns = `id, user_id, siren_number, first_name, last_name, email, phone, address,
	city, state, zip, country, company, legal_structure, legal_status, vat_number,
	currency, language, created_at`

func (s *PostgresRecordStore) Save(ctx context.Context, record *models.BusinessRecord) error {
	if record == nil {
		return fmt.Errorf("business record is required")
	}
	query := `INSERT INTO business_records (` + recordColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`
	_, err := s.conn(ctx).ExecContext(ctx, query,
		record.ID.String(), record.UserID.String(), record.SirenNumber,
		record.FirstName, record.LastName, record.Email, record.Phone, record.Address,
		record.City, record.State, record.Zip, record.Country, record.Company,
		record.LegalStructure, record.LegalStatus, record.VATNumber,
		record.Currency, record.Language, record.CreatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return fmt.Errorf("save business record %s: %w", record.ID, sentinel.ErrConflict)
		}
		return fmt.Errorf("save business record: %w", err)
	}
	return nil
}

func (s *PostgresRecordStore) FindByID(ctx context.Context, recordID id.RecordID) (*models.BusinessRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM business_records WHERE id = $1`
	record, err := scanRecord(s.conn(ctx).QueryRowContext(ctx, query, recordID.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find business record: %w", err)
	}
	return record, nil
}

// ListByUser returns the user's records, newest first.
func (s *PostgresRecordStore) ListByUser(ctx context.Context, userID id.UserID) ([]*models.BusinessRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM business_records
		WHERE user_id = $1 ORDER BY created_at DESC, id`
	rows, err := s.conn(ctx).QueryContext(ctx, query, userID.String())
	if err != nil {
		return nil, fmt.Errorf("list business records: %w", err)
	}
	defer rows.Close()

	var out []*models.BusinessRecord
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan business record: %w", err)
		}
		out = append(out, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list business records: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*models.BusinessRecord, error) {
	var (
		r              models.BusinessRecord
		recordID, user string
	)
	err := row.Scan(
		&recordID, &user, &r.SirenNumber,
		&r.FirstName, &r.LastName, &r.Email, &r.Phone, &r.Address,
		&r.City, &r.State, &r.Zip, &r.Country, &r.Company,
		&r.LegalStructure, &r.LegalStatus, &r.VATNumber,
		&r.Currency, &r.Language, &r.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := r.ID.UnmarshalText([]byte(recordID)); err != nil {
		return nil, fmt.Errorf("decode record id: %w", err)
	}
	if err := r.UserID.UnmarshalText([]byte(user)); err != nil {
		return nil, fmt.Errorf("decode user id: %w", err)
	}
	return &r, nil
}

// SQLTransactor opens a database transaction around a unit of work. The
// PostgreSQL store picks it up from the context.
type SQLTransactor struct {
	db *sql.DB
}

func NewSQLTransactor(db *sql.DB) *SQLTransactor {
	return &SQLTransactor{db: db}
}

// RunInTx commits when fn returns nil and rolls back otherwise. A context that
// already carries a transaction is reused.
func (t *SQLTransactor) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return tx.Run(ctx, t.db, fn)
}
