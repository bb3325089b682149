/**
 * @description
 * This file maps raw aggregator webhook payloads into the fixed internal
 * NotificationEvent type. The aggregator's payloads are loosely typed and
 * evolve without notice, so decoding deliberately rejects nothing: the body
 * is unmarshaled into a generic map and each field is extracted with a
 * type-tolerant helper, leaving optional fields unset when absent or
 * unreadable.
 *
 * @dependencies
 * - encoding/json, strconv, strings, time: Standard Go libraries.
 */

package domain

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// DecodeNotification parses an aggregator webhook body into a NotificationEvent.
// It never fails: an unparsable body yields the zero event, which the
// reconciler then ignores for lack of a reference.
func DecodeNotification(body []byte) NotificationEvent {
	var raw map[string]interface{}
	if err := json.Unmarshal(body, &raw); err != nil {
		return NotificationEvent{}
	}

	event := NotificationEvent{
		Reference:     stringField(raw, "external_reference", "reference"),
		TransactionID: stringField(raw, "transaction_id"),
		Status:        strings.ToLower(stringField(raw, "status")),
		Success:       boolField(raw, "success"),
	}

	if ts := stringField(raw, "timestamp"); ts != "" {
		if parsed, ok := parseTimestamp(ts); ok {
			event.Timestamp = &parsed
		}
	}

	result, _ := raw["result"].(map[string]interface{})
	if result == nil {
		return event
	}

	event.ResultCode = intField(result, "ResultCode")
	event.ResultDesc = stringField(result, "ResultDesc")
	event.ReceiptNumber = stringField(result, "MpesaReceiptNumber")
	event.Amount = int64Field(result, "Amount")
	event.Phone = stringField(result, "Phone", "PhoneNumber")
	event.CustomerName = extractCustomerName(result)

	return event
}

// extractCustomerName prefers the aggregator's display name, falling back to
// a concatenation of the individual name parts when only those are present.
func extractCustomerName(result map[string]interface{}) string {
	if name := stringField(result, "Name"); name != "" {
		return name
	}
	parts := make([]string, 0, 3)
	for _, key := range []string{"FirstName", "MiddleName", "LastName"} {
		if part := stringField(result, key); part != "" {
			parts = append(parts, part)
		}
	}
	return strings.Join(parts, " ")
}

// stringField returns the first present key rendered as a string. Numeric
// values are formatted rather than dropped because the aggregator sometimes
// sends phone numbers as JSON numbers.
func stringField(m map[string]interface{}, keys ...string) string {
	for _, key := range keys {
		switch v := m[key].(type) {
		case string:
			if trimmed := strings.TrimSpace(v); trimmed != "" {
				return trimmed
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return ""
}

func boolField(m map[string]interface{}, key string) bool {
	switch v := m[key].(type) {
	case bool:
		return v
	case string:
		return strings.EqualFold(strings.TrimSpace(v), "true")
	default:
		return false
	}
}

// intField distinguishes "absent" from zero, which matters for result codes
// where 0 means success.
func intField(m map[string]interface{}, key string) *int {
	switch v := m[key].(type) {
	case float64:
		code := int(v)
		return &code
	case string:
		if code, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return &code
		}
	}
	return nil
}

func int64Field(m map[string]interface{}, key string) *int64 {
	switch v := m[key].(type) {
	case float64:
		amount := int64(v)
		return &amount
	case string:
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			amount := int64(parsed)
			return &amount
		}
	}
	return nil
}

func parseTimestamp(value string) (time.Time, bool) {
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05"} {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed, true
		}
	}
	return time.Time{}, false
}
