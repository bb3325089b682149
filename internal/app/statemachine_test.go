package app

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/swiftloan/collection-service/internal/domain"
)

var testNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func pendingFixture() domain.Receipt {
	return NewPendingReceipt("ORDER-1", "254712345678", "50000", 500, "txn_abc", testNow)
}

func successEvent() domain.NotificationEvent {
	code := 0
	amount := int64(500)
	return domain.NotificationEvent{
		Reference:     "ORDER-1",
		TransactionID: "txn_abc",
		Status:        "completed",
		Success:       true,
		ResultCode:    &code,
		ReceiptNumber: "ABC123",
		Amount:        &amount,
		Phone:         "254712345678",
		CustomerName:  "Jane Wanjiku",
	}
}

func TestNewPendingReceipt(t *testing.T) {
	receipt := pendingFixture()

	if receipt.Status != domain.StatusPending {
		t.Fatalf("expected pending status, got %q", receipt.Status)
	}
	if receipt.TransactionID == nil || *receipt.TransactionID != "txn_abc" {
		t.Fatalf("expected transaction id to be recorded, got %v", receipt.TransactionID)
	}
	if receipt.TransactionCode != nil {
		t.Fatal("expected no transaction code before confirmation")
	}
	if receipt.CustomerName != "N/A" {
		t.Fatalf("expected placeholder customer name, got %q", receipt.CustomerName)
	}
}

func TestNewErrorReceipt_DefaultsLoanAmount(t *testing.T) {
	receipt := NewErrorReceipt("ORDER-2", "", "", 0, testNow)
	if receipt.Status != domain.StatusError {
		t.Fatalf("expected error status, got %q", receipt.Status)
	}
	if receipt.LoanAmount != "50000" {
		t.Fatalf("expected defaulted loan amount, got %q", receipt.LoanAmount)
	}
}

func TestApplyNotification_SuccessMovesToProcessing(t *testing.T) {
	existing := pendingFixture()
	next := ApplyNotification(&existing, successEvent(), testNow)

	if next.Status != domain.StatusProcessing {
		t.Fatalf("expected processing, got %q", next.Status)
	}
	if next.TransactionCode == nil || *next.TransactionCode != "ABC123" {
		t.Fatalf("expected transaction code ABC123, got %v", next.TransactionCode)
	}
	if next.CustomerName != "Jane Wanjiku" {
		t.Fatalf("expected upgraded customer name, got %q", next.CustomerName)
	}
	if next.FeeAmount != 500 {
		t.Fatalf("expected amount 500, got %d", next.FeeAmount)
	}
}

func TestApplyNotification_IsIdempotent(t *testing.T) {
	existing := pendingFixture()
	event := successEvent()

	first := ApplyNotification(&existing, event, testNow)
	second := ApplyNotification(&first, event, testNow)

	if !reflect.DeepEqual(first, second) {
		t.Fatalf("replayed notification changed the record:\nfirst:  %+v\nsecond: %+v", first, second)
	}
}

func TestApplyNotification_ResultCodeZeroAloneIsSuccess(t *testing.T) {
	existing := pendingFixture()
	code := 0
	event := domain.NotificationEvent{Reference: "ORDER-1", ResultCode: &code}

	next := ApplyNotification(&existing, event, testNow)
	if next.Status != domain.StatusProcessing {
		t.Fatalf("expected processing for result code 0, got %q", next.Status)
	}
}

func TestApplyNotification_MissingResultCodeIsNotSuccess(t *testing.T) {
	existing := pendingFixture()
	event := domain.NotificationEvent{Reference: "ORDER-1", Status: "completed"}

	next := ApplyNotification(&existing, event, testNow)
	if next.Status != domain.StatusCancelled {
		t.Fatalf("expected cancelled without success evidence, got %q", next.Status)
	}
}

func TestApplyNotification_LastWriterWins(t *testing.T) {
	existing := pendingFixture()
	code := 1037

	processing := ApplyNotification(&existing, successEvent(), testNow)
	final := ApplyNotification(&processing, domain.NotificationEvent{Reference: "ORDER-1", ResultCode: &code}, testNow)

	if final.Status != domain.StatusCancelled {
		t.Fatalf("expected cancelled after late failure notification, got %q", final.Status)
	}
}

func TestApplyNotification_ShadowRecordForUnknownReference(t *testing.T) {
	code := 1032
	event := domain.NotificationEvent{Reference: "ORDER-ghost", ResultCode: &code}

	next := ApplyNotification(nil, event, testNow)

	if next.Reference != "ORDER-ghost" {
		t.Fatalf("expected shadow record to carry the reference, got %q", next.Reference)
	}
	if next.Status != domain.StatusCancelled {
		t.Fatalf("expected cancelled, got %q", next.Status)
	}
	if next.StatusNote != cancelNotes[1032] {
		t.Fatalf("expected user-cancelled note, got %q", next.StatusNote)
	}
	if next.CustomerName != "N/A" {
		t.Fatalf("expected placeholder name on shadow record, got %q", next.CustomerName)
	}
}

func TestApplyNotification_CancelNoteSelection(t *testing.T) {
	tests := []struct {
		name       string
		code       *int
		resultDesc string
		want       string
	}{
		{name: "timeout code", code: intPtr(1037), want: cancelNotes[1037]},
		{name: "insufficient balance code", code: intPtr(2001), want: cancelNotes[2001]},
		{name: "unknown code falls back to aggregator text", code: intPtr(9999), resultDesc: "DS timeout", want: "DS timeout"},
		{name: "no code uses aggregator text", resultDesc: "Request cancelled", want: "Request cancelled"},
		{name: "nothing available uses generic note", want: genericCancelNote},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event := domain.NotificationEvent{Reference: "ORDER-1", ResultCode: tt.code, ResultDesc: tt.resultDesc}
			next := ApplyNotification(nil, event, testNow)
			if next.StatusNote != tt.want {
				t.Fatalf("expected note %q, got %q", tt.want, next.StatusNote)
			}
		})
	}
}

func TestApplyNotification_PreservesPriorFieldsWhenEventOmitsThem(t *testing.T) {
	existing := pendingFixture()
	processing := ApplyNotification(&existing, successEvent(), testNow)

	code := 1032
	bare := domain.NotificationEvent{Reference: "ORDER-1", ResultCode: &code}
	next := ApplyNotification(&processing, bare, testNow)

	if next.Phone != "254712345678" {
		t.Fatalf("expected phone preserved, got %q", next.Phone)
	}
	if next.FeeAmount != 500 {
		t.Fatalf("expected amount preserved, got %d", next.FeeAmount)
	}
	if next.CustomerName != "Jane Wanjiku" {
		t.Fatalf("expected customer name preserved, got %q", next.CustomerName)
	}
	if next.TransactionCode == nil || *next.TransactionCode != "ABC123" {
		t.Fatalf("expected transaction code preserved, got %v", next.TransactionCode)
	}
}

func TestApplyNotification_EventTimestampWins(t *testing.T) {
	existing := pendingFixture()
	eventTime := time.Date(2024, 5, 1, 12, 34, 56, 0, time.UTC)
	event := successEvent()
	event.Timestamp = &eventTime

	next := ApplyNotification(&existing, event, testNow)
	if !next.Timestamp.Equal(eventTime) {
		t.Fatalf("expected event timestamp %v, got %v", eventTime, next.Timestamp)
	}
}

func TestApplyAdminStatus(t *testing.T) {
	tests := []struct {
		name    string
		from    string
		target  string
		wantErr bool
	}{
		{name: "processing to success", from: domain.StatusProcessing, target: domain.StatusSuccess},
		{name: "processing to loan_released", from: domain.StatusProcessing, target: domain.StatusLoanReleased},
		{name: "success to loan_released", from: domain.StatusSuccess, target: domain.StatusLoanReleased},
		{name: "pending cannot be released", from: domain.StatusPending, target: domain.StatusLoanReleased, wantErr: true},
		{name: "cancelled cannot succeed", from: domain.StatusCancelled, target: domain.StatusSuccess, wantErr: true},
		{name: "unknown target rejected", from: domain.StatusProcessing, target: "refunded", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			existing := pendingFixture()
			existing.Status = tt.from

			next, err := ApplyAdminStatus(existing, tt.target, testNow)
			if tt.wantErr {
				if !errors.Is(err, ErrIllegalTransition) {
					t.Fatalf("expected ErrIllegalTransition, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if next.Status != tt.target {
				t.Fatalf("expected status %q, got %q", tt.target, next.Status)
			}
		})
	}
}

func intPtr(v int) *int {
	return &v
}
