package domain

import "testing"

func TestResultMergeAndBlocking(t *testing.T) {
	var result Result
	if result.HasBlocking() {
		t.Fatalf("empty result should not block")
	}

	result.Merge(Result{})
	if len(result.Violations) != 0 {
		t.Fatalf("merging an empty result should not add violations")
	}

	result.Merge(Result{Violations: []Violation{{Rule: "ledger_append_only", Severity: SeverityWarn}}})
	if result.HasBlocking() {
		t.Fatalf("warn severity should not block")
	}

	result.Merge(Result{Violations: []Violation{{Rule: "inventory_balance", Severity: SeverityBlock}}})
	if !result.HasBlocking() {
		t.Fatalf("block severity should block")
	}
	if len(result.Violations) != 2 {
		t.Fatalf("expected 2 violations, got %d", len(result.Violations))
	}

	err := RuleViolationError{Result: result}
	if err.Error() == "" {
		t.Fatalf("error string should not be empty")
	}
}

func TestChangePayloadRoundTrip(t *testing.T) {
	lot := InventoryLot{Base: Base{ID: "lot-1"}, BloodGroup: GroupOPos, Units: 3, Status: LotAvailable}
	payload, err := NewChangePayloadFromValue(lot)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	if !payload.Defined() {
		t.Fatalf("payload should be defined")
	}

	raw := payload.Raw()
	raw[0] = '!' // mutating the copy must not affect the payload
	if payload.Raw()[0] == '!' {
		t.Fatalf("Raw must return a defensive copy")
	}

	decoded, ok := DecodePayload[InventoryLot](payload)
	if !ok || decoded.ID != "lot-1" || decoded.Units != 3 {
		t.Fatalf("unexpected decoded lot %+v", decoded)
	}

	var undefined ChangePayload
	if undefined.Defined() || undefined.Raw() != nil {
		t.Fatalf("zero payload should report undefined")
	}
	if _, ok := DecodePayload[InventoryLot](undefined); ok {
		t.Fatalf("decoding an undefined payload must fail")
	}
}
