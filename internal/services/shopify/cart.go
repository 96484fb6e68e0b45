package shopify

import (
	"fmt"
	"math"
	"strconv"
)

// CartPayload is the carts/create|update webhook body, reduced to the
// fields this service uses. Shopify sends line item IDs and prices as
// strings or numbers depending on API version, so those fields stay
// untyped until coercion.
type CartPayload struct {
	ID        interface{} `json:"id"`
	Token     string      `json:"token"`
	LineItems []LineItem  `json:"line_items"`
	Note      *string     `json:"note"`
	UpdatedAt string      `json:"updated_at"`
	CreatedAt string      `json:"created_at"`
}

type LineItem struct {
	ID       interface{} `json:"id"`
	Title    string      `json:"title"`
	Price    interface{} `json:"price"`
	Quantity interface{} `json:"quantity"`
}

// CartItem is the canonical line item used by the rest of the pipeline.
type CartItem struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
}

type Cart struct {
	Items []CartItem `json:"items"`
	Total float64    `json:"total"`
}

// NormalizeCart converts a provider payload into a canonical Cart. The
// total is always recomputed from the items, never trusted from the
// payload. Malformed prices and quantities zero out instead of failing:
// bad upstream data must never crash the pipeline.
func NormalizeCart(payload CartPayload) Cart {
	items := make([]CartItem, 0, len(payload.LineItems))
	total := 0.0

	for _, li := range payload.LineItems {
		item := CartItem{
			ID:       Stringify(li.ID),
			Name:     li.Title,
			Price:    ToNumber(li.Price),
			Quantity: toQuantity(li.Quantity),
		}
		items = append(items, item)
		total += item.Price * float64(item.Quantity)
	}

	return Cart{Items: items, Total: total}
}

// ProductIDs returns the distinct product identifiers in the cart,
// preserving first-seen order.
func (c Cart) ProductIDs() []string {
	seen := make(map[string]bool, len(c.Items))
	ids := make([]string, 0, len(c.Items))
	for _, item := range c.Items {
		if item.ID == "" || seen[item.ID] {
			continue
		}
		seen[item.ID] = true
		ids = append(ids, item.ID)
	}
	return ids
}

// ToNumber coerces a string-or-number JSON value to a finite float64,
// defaulting to 0 on anything unparseable.
func ToNumber(v interface{}) float64 {
	n, _ := ToNumberOK(v)
	return n
}

// ToNumberOK is ToNumber with an explicit parseability signal, for
// callers that must not conflate a missing value with a genuine zero.
func ToNumberOK(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		if isFinite(n) {
			return n, true
		}
		return 0, false
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil || !isFinite(f) {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// Stringify converts an identifier that may arrive as a JSON number or
// string into its string form.
func Stringify(v interface{}) string {
	switch id := v.(type) {
	case string:
		return id
	case float64:
		return strconv.FormatInt(int64(id), 10)
	case int64:
		return strconv.FormatInt(id, 10)
	case int:
		return strconv.Itoa(id)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", id)
	}
}

func toQuantity(v interface{}) int {
	n := ToNumber(v)
	if n < 0 {
		return 0
	}
	return int(n)
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
