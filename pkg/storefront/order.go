package storefront

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// timeLayouts are tried in order when parsing remote timestamps. The platform
// is not consistent about formats across endpoints.
var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// FlexTime parses the platform's assorted timestamp formats. Unparseable or
// absent values stay zero, which sorts oldest.
type FlexTime struct {
	time.Time
}

func (t *FlexTime) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(string(data), `"`)
	if raw == "" || raw == "null" {
		t.Time = time.Time{}
		return nil
	}
	for _, layout := range timeLayouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			t.Time = parsed
			return nil
		}
	}
	// epoch seconds show up on some webhook-era payloads
	if secs, err := strconv.ParseInt(raw, 10, 64); err == nil && secs > 0 {
		t.Time = time.Unix(secs, 0).UTC()
		return nil
	}
	t.Time = time.Time{}
	return nil
}

// FlexString accepts either a JSON string or a number.
type FlexString string

func (s *FlexString) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" {
		*s = ""
		return nil
	}
	if strings.HasPrefix(trimmed, `"`) {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*s = FlexString(str)
		return nil
	}
	*s = FlexString(trimmed)
	return nil
}

// Money tolerates the platform's three amount shapes: a bare number, a quoted
// number, or an {amount, currency} object.
type Money struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}

func (m *Money) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" || trimmed == "" {
		*m = Money{}
		return nil
	}
	if strings.HasPrefix(trimmed, "{") {
		type alias Money
		var parsed alias
		if err := json.Unmarshal(data, &parsed); err != nil {
			return err
		}
		*m = Money(parsed)
		return nil
	}
	raw := strings.Trim(trimmed, `"`)
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		*m = Money{}
		return nil
	}
	m.Amount = amount
	return nil
}

// OrderStatus is the remote platform's status descriptor.
type OrderStatus struct {
	ID   int64  `json:"id"`
	Slug string `json:"slug"`
	Name string `json:"name"`
}

// Order is the normalized remote order. Raw keeps the original payload for
// the claim-time snapshot.
type Order struct {
	ID          int64       `json:"id"`
	ReferenceID FlexString  `json:"reference_id"`
	Number      FlexString  `json:"number"`
	Status      OrderStatus `json:"status"`
	Total       Money       `json:"total"`
	PlacedAt    *FlexTime   `json:"placed_at"`
	CreatedAt   *FlexTime   `json:"created_at"`
	UpdatedAt   *FlexTime   `json:"updated_at"`
	Items       []OrderItem `json:"items"`

	Raw json.RawMessage `json:"-"`
}

func (o *Order) UnmarshalJSON(data []byte) error {
	type alias Order
	var parsed alias
	if err := json.Unmarshal(data, &parsed); err != nil {
		return err
	}
	*o = Order(parsed)
	o.Raw = append(json.RawMessage(nil), data...)
	return nil
}

// ResolvedID returns the stable identifier for dedup and claims: the numeric
// id when present, otherwise the reference id.
func (o Order) ResolvedID() string {
	if o.ID != 0 {
		return strconv.FormatInt(o.ID, 10)
	}
	return strings.TrimSpace(string(o.ReferenceID))
}

// BestTimestamp picks the oldest-first sort key: placed, then created, then
// updated; zero when none parsed.
func (o Order) BestTimestamp() time.Time {
	for _, candidate := range []*FlexTime{o.PlacedAt, o.CreatedAt, o.UpdatedAt} {
		if candidate != nil && !candidate.IsZero() {
			return candidate.Time
		}
	}
	return time.Time{}
}

// Snapshot decodes the raw payload into a generic map for jsonb storage.
func (o Order) Snapshot() map[string]any {
	if len(o.Raw) == 0 {
		return nil
	}
	var snapshot map[string]any
	if err := json.Unmarshal(o.Raw, &snapshot); err != nil {
		return nil
	}
	return snapshot
}

// OrderItem is one line item of a remote order.
type OrderItem struct {
	ID       int64      `json:"id"`
	SKU      FlexString `json:"sku"`
	Name     string     `json:"name"`
	Quantity int        `json:"quantity"`
	Price    Money      `json:"price"`
}
