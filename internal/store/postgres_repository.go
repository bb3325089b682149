/**
 * @description
 * This file provides the PostgreSQL implementation of the `Repository` interface.
 * It contains the SQL needed to persist and fetch receipt records keyed by their
 * reference.
 *
 * @notes
 * - UpsertReceipt takes a transaction-scoped advisory lock on the reference
 *   before reading, so two concurrent webhook deliveries for the same
 *   reference serialize even when no row exists yet (a plain row lock cannot
 *   cover the insert race).
 * - Writes go through INSERT ... ON CONFLICT so creation and mutation share
 *   one statement.
 *
 * @dependencies
 * - context, errors, fmt, time: Standard Go libraries.
 * - github.com/jackc/pgx/v5: The PostgreSQL driver for database operations.
 * - internal/domain: Contains the domain models used for data transfer.
 */

package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/swiftloan/collection-service/internal/domain"
)

// PostgresRepository is a concrete implementation of the Repository interface for PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository creates a new instance of PostgresRepository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// EnsureSchema creates the receipts table if it does not exist yet.
// This mirrors the approach used in other services (idempotent bootstrap at startup).
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	_, err := r.db.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS receipts (
            reference        TEXT PRIMARY KEY,
            transaction_id   TEXT,
            transaction_code TEXT,
            fee_amount       BIGINT NOT NULL DEFAULT 0,
            loan_amount      TEXT NOT NULL DEFAULT '',
            phone            TEXT NOT NULL DEFAULT '',
            customer_name    TEXT NOT NULL DEFAULT 'N/A',
            status           TEXT NOT NULL,
            status_note      TEXT NOT NULL DEFAULT '',
            updated_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
        );
    `)
	if err != nil {
		return fmt.Errorf("ensure receipts table: %w", err)
	}
	return nil
}

const receiptColumns = `reference, transaction_id, transaction_code, fee_amount, loan_amount, phone, customer_name, status, status_note, updated_at`

// GetReceipt retrieves a receipt from the database by its reference.
func (r *PostgresRepository) GetReceipt(ctx context.Context, reference string) (*domain.Receipt, error) {
	query := `SELECT ` + receiptColumns + ` FROM receipts WHERE reference = $1`
	receipt, err := scanReceipt(r.db.QueryRow(ctx, query, reference))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrReceiptNotFound
		}
		return nil, fmt.Errorf("query receipt %s: %w", reference, err)
	}
	return receipt, nil
}

// UpsertReceipt performs an atomic read-modify-write for one reference.
func (r *PostgresRepository) UpsertReceipt(ctx context.Context, reference string, mutate func(existing *domain.Receipt) (domain.Receipt, error)) (*domain.Receipt, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin upsert for %s: %w", reference, err)
	}
	defer tx.Rollback(ctx)

	// Serialize all writers for this reference, including first-time inserts.
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, reference); err != nil {
		return nil, fmt.Errorf("lock reference %s: %w", reference, err)
	}

	var existing *domain.Receipt
	query := `SELECT ` + receiptColumns + ` FROM receipts WHERE reference = $1`
	existing, err = scanReceipt(tx.QueryRow(ctx, query, reference))
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("read receipt %s: %w", reference, err)
		}
		existing = nil
	}

	next, err := mutate(existing)
	if err != nil {
		return nil, err
	}
	next.Reference = reference
	if next.Timestamp.IsZero() {
		next.Timestamp = time.Now().UTC()
	}

	_, err = tx.Exec(ctx, `
        INSERT INTO receipts (reference, transaction_id, transaction_code, fee_amount, loan_amount, phone, customer_name, status, status_note, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
        ON CONFLICT (reference) DO UPDATE SET
            transaction_id   = EXCLUDED.transaction_id,
            transaction_code = EXCLUDED.transaction_code,
            fee_amount       = EXCLUDED.fee_amount,
            loan_amount      = EXCLUDED.loan_amount,
            phone            = EXCLUDED.phone,
            customer_name    = EXCLUDED.customer_name,
            status           = EXCLUDED.status,
            status_note      = EXCLUDED.status_note,
            updated_at       = EXCLUDED.updated_at`,
		next.Reference, next.TransactionID, next.TransactionCode, next.FeeAmount,
		next.LoanAmount, next.Phone, next.CustomerName, next.Status, next.StatusNote, next.Timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("write receipt %s: %w", reference, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit receipt %s: %w", reference, err)
	}
	return &next, nil
}

func scanReceipt(row pgx.Row) (*domain.Receipt, error) {
	var receipt domain.Receipt
	err := row.Scan(
		&receipt.Reference,
		&receipt.TransactionID,
		&receipt.TransactionCode,
		&receipt.FeeAmount,
		&receipt.LoanAmount,
		&receipt.Phone,
		&receipt.CustomerName,
		&receipt.Status,
		&receipt.StatusNote,
		&receipt.Timestamp,
	)
	if err != nil {
		return nil, err
	}
	return &receipt, nil
}
