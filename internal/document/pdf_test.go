package document

import (
	"bytes"
	"testing"
	"time"

	"github.com/swiftloan/collection-service/internal/domain"
)

func sampleReceipt(status string) domain.Receipt {
	txnID := "txn_abc"
	code := "ABC123"
	return domain.Receipt{
		Reference:       "ORDER-1714564800000",
		TransactionID:   &txnID,
		TransactionCode: &code,
		FeeAmount:       500,
		LoanAmount:      "50000",
		Phone:           "254712345678",
		CustomerName:    "Jane Wanjiku",
		Status:          status,
		StatusNote:      "Your fee payment has been received and verified.",
		Timestamp:       time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestRender_ProducesPDF(t *testing.T) {
	for _, status := range []string{
		domain.StatusPending,
		domain.StatusSTKFailed,
		domain.StatusError,
		domain.StatusProcessing,
		domain.StatusCancelled,
		domain.StatusSuccess,
		domain.StatusLoanReleased,
	} {
		t.Run(status, func(t *testing.T) {
			out, err := Render(sampleReceipt(status))
			if err != nil {
				t.Fatalf("Render: %v", err)
			}
			if !bytes.HasPrefix(out, []byte("%PDF")) {
				t.Fatal("expected PDF magic bytes")
			}
		})
	}
}

func TestRender_IsDeterministic(t *testing.T) {
	receipt := sampleReceipt(domain.StatusSuccess)

	first, err := Render(receipt)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	second, err := Render(receipt)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Fatal("expected identical bytes for identical records")
	}
}

func TestRender_SparseRecordUsesPlaceholders(t *testing.T) {
	receipt := domain.Receipt{
		Reference: "ORDER-1",
		Status:    domain.StatusPending,
		Timestamp: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}

	out, err := Render(receipt)
	if err != nil {
		t.Fatalf("Render with missing fields: %v", err)
	}
	if len(out) == 0 {
		t.Fatal("expected non-empty document")
	}
}

func TestRender_UnknownStatusFallsBack(t *testing.T) {
	receipt := sampleReceipt("refunded")

	out, err := Render(receipt)
	if err != nil {
		t.Fatalf("Render with unknown status: %v", err)
	}
	if !bytes.HasPrefix(out, []byte("%PDF")) {
		t.Fatal("expected PDF magic bytes")
	}
}
