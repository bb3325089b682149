/**
 * @description
 * This file defines the core domain models for the collection-service.
 * These structs represent the main entities and data transfer objects (DTOs)
 * used throughout the service's business logic, database interactions, and API layers.
 *
 * @notes
 * - The fee amount is stored as `int64` in whole shillings, which avoids
 *   floating-point inaccuracies with financial data. The loan amount is kept
 *   as a display string because the upstream contract treats it as one.
 * - Optional fields that may only arrive via a later notification
 *   (transaction id, transaction code) are pointers so absence survives
 *   round trips through the store.
 */

package domain

import "time"

// Receipt lifecycle statuses. Transitions between them are owned by the
// state machine in internal/app; nothing else writes a status directly.
const (
	StatusPending      = "pending"
	StatusSTKFailed    = "stk_failed"
	StatusError        = "error"
	StatusProcessing   = "processing"
	StatusCancelled    = "cancelled"
	StatusSuccess      = "success"
	StatusLoanReleased = "loan_released"
)

// Receipt is the persisted record representing one collection attempt's full
// lifecycle. It maps directly to the `receipts` table and is keyed by the
// caller-visible reference.
type Receipt struct {
	Reference       string    `json:"reference"`
	TransactionID   *string   `json:"transaction_id"`
	TransactionCode *string   `json:"transaction_code"`
	FeeAmount       int64     `json:"amount"`
	LoanAmount      string    `json:"loan_amount"`
	Phone           string    `json:"phone"`
	CustomerName    string    `json:"customer_name"`
	Status          string    `json:"status"`
	StatusNote      string    `json:"status_note"`
	Timestamp       time.Time `json:"timestamp"`
}

// InitiateCollectionRequest is the DTO for the incoming payment initiation API request.
type InitiateCollectionRequest struct {
	Phone      string  `json:"phone"`
	Amount     float64 `json:"amount"`
	LoanAmount string  `json:"loan_amount,omitempty"`
}

// NotificationEvent is the fixed internal representation of an aggregator
// webhook notification. Decoding is tolerant: every field is optional and a
// missing or oddly-typed value simply leaves its zero value (or nil pointer)
// in place, so the reconciler can degrade gracefully.
type NotificationEvent struct {
	Reference     string
	TransactionID string
	Status        string
	Success       bool
	ResultCode    *int
	ResultDesc    string
	ReceiptNumber string
	Amount        *int64
	Phone         string
	CustomerName  string
	Timestamp     *time.Time
}
