package domain

import "testing"

func TestDecodeNotification_FullSuccessPayload(t *testing.T) {
	body := []byte(`{
        "external_reference": "ORDER-1700000000000",
        "transaction_id": "txn_123",
        "status": "COMPLETED",
        "success": true,
        "timestamp": "2024-05-01T10:30:00Z",
        "result": {
            "ResultCode": 0,
            "ResultDesc": "The service request is processed successfully.",
            "MpesaReceiptNumber": "ABC123",
            "Amount": 500,
            "Phone": "254712345678",
            "Name": "Jane Wanjiku"
        }
    }`)

	event := DecodeNotification(body)

	if event.Reference != "ORDER-1700000000000" {
		t.Fatalf("unexpected reference %q", event.Reference)
	}
	if event.TransactionID != "txn_123" {
		t.Fatalf("unexpected transaction id %q", event.TransactionID)
	}
	if event.Status != "completed" {
		t.Fatalf("expected lowercased status, got %q", event.Status)
	}
	if !event.Success {
		t.Fatal("expected success flag to be true")
	}
	if event.ResultCode == nil || *event.ResultCode != 0 {
		t.Fatalf("expected result code 0, got %v", event.ResultCode)
	}
	if event.ReceiptNumber != "ABC123" {
		t.Fatalf("unexpected receipt number %q", event.ReceiptNumber)
	}
	if event.Amount == nil || *event.Amount != 500 {
		t.Fatalf("expected amount 500, got %v", event.Amount)
	}
	if event.Phone != "254712345678" {
		t.Fatalf("unexpected phone %q", event.Phone)
	}
	if event.CustomerName != "Jane Wanjiku" {
		t.Fatalf("unexpected customer name %q", event.CustomerName)
	}
	if event.Timestamp == nil {
		t.Fatal("expected timestamp to parse")
	}
}

func TestDecodeNotification_ToleratesGarbage(t *testing.T) {
	for _, body := range [][]byte{
		[]byte(`not json at all`),
		[]byte(`{}`),
		[]byte(`{"result": "not an object"}`),
		[]byte(`{"external_reference": 42}`),
		nil,
	} {
		event := DecodeNotification(body)
		if event.ResultCode != nil {
			t.Fatalf("expected absent result code for %q", body)
		}
		if event.Success {
			t.Fatalf("expected success false for %q", body)
		}
	}
}

func TestDecodeNotification_NumericReferenceRendered(t *testing.T) {
	event := DecodeNotification([]byte(`{"external_reference": 1700000000000}`))
	if event.Reference != "1700000000000" {
		t.Fatalf("expected numeric reference formatted as string, got %q", event.Reference)
	}
}

func TestDecodeNotification_StringTypedResultFields(t *testing.T) {
	body := []byte(`{
        "external_reference": "ORDER-1",
        "result": {"ResultCode": "1032", "Amount": "500.00", "Phone": 254712345678}
    }`)

	event := DecodeNotification(body)

	if event.ResultCode == nil || *event.ResultCode != 1032 {
		t.Fatalf("expected result code 1032, got %v", event.ResultCode)
	}
	if event.Amount == nil || *event.Amount != 500 {
		t.Fatalf("expected amount 500, got %v", event.Amount)
	}
	if event.Phone != "254712345678" {
		t.Fatalf("expected numeric phone formatted as string, got %q", event.Phone)
	}
}

func TestDecodeNotification_NamePartsJoined(t *testing.T) {
	body := []byte(`{
        "external_reference": "ORDER-2",
        "result": {"FirstName": "John", "LastName": "Omondi"}
    }`)

	event := DecodeNotification(body)
	if event.CustomerName != "John Omondi" {
		t.Fatalf("expected joined name, got %q", event.CustomerName)
	}
}

func TestDecodeNotification_ZeroResultCodeIsPresent(t *testing.T) {
	event := DecodeNotification([]byte(`{"result": {"ResultCode": 0}}`))
	if event.ResultCode == nil {
		t.Fatal("expected result code 0 to be present, not absent")
	}
	if *event.ResultCode != 0 {
		t.Fatalf("expected result code 0, got %d", *event.ResultCode)
	}
}
