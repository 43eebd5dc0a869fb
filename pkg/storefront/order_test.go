package storefront

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestOrderToleratesInconsistentPayloads(t *testing.T) {
	payload := []byte(`{
		"id": 0,
		"reference_id": 9912,
		"number": "A-9912",
		"total": {"amount": "12.50", "currency": "USD"},
		"placed_at": "not a date",
		"created_at": 1767323045
	}`)

	var order Order
	if err := json.Unmarshal(payload, &order); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if got := order.ResolvedID(); got != "9912" {
		t.Fatalf("ResolvedID = %q, want numeric reference fallback", got)
	}
	if !order.Total.Amount.Equal(decimal.RequireFromString("12.50")) {
		t.Fatalf("total = %s", order.Total.Amount.String())
	}

	// The garbage placed_at must not fail the parse, and the epoch
	// created_at takes over as the ranking timestamp.
	want := time.Unix(1767323045, 0).UTC()
	if got := order.BestTimestamp(); !got.Equal(want) {
		t.Fatalf("BestTimestamp = %v, want %v", got, want)
	}

	if len(order.Raw) == 0 {
		t.Fatal("expected raw payload snapshot")
	}
}

func TestOrderResolvedIDPrefersNumericID(t *testing.T) {
	var order Order
	if err := json.Unmarshal([]byte(`{"id": 44, "reference_id": "ref-44"}`), &order); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got := order.ResolvedID(); got != "44" {
		t.Fatalf("ResolvedID = %q, want %q", got, "44")
	}
}

func TestMoneyShapes(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"number", `19.99`, "19.99"},
		{"string", `"7.25"`, "7.25"},
		{"object", `{"amount": 3}`, "3"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var m Money
			if err := json.Unmarshal([]byte(tc.in), &m); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if !m.Amount.Equal(decimal.RequireFromString(tc.want)) {
				t.Fatalf("amount = %s, want %s", m.Amount.String(), tc.want)
			}
		})
	}
}
