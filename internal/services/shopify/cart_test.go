package shopify

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeCartComputesTotal(t *testing.T) {
	var payload CartPayload
	raw := `{
		"token": "cart-token",
		"line_items": [
			{"id": 111, "title": "T-shirt", "price": "25.00", "quantity": 2},
			{"id": "222", "title": "Cap", "price": 12.5, "quantity": 1}
		]
	}`
	require.NoError(t, json.Unmarshal([]byte(raw), &payload))

	cart := NormalizeCart(payload)

	require.Len(t, cart.Items, 2)
	assert.Equal(t, CartItem{ID: "111", Name: "T-shirt", Price: 25, Quantity: 2}, cart.Items[0])
	assert.Equal(t, CartItem{ID: "222", Name: "Cap", Price: 12.5, Quantity: 1}, cart.Items[1])

	// Total is recomputed from items, never read off the payload.
	expected := 0.0
	for _, item := range cart.Items {
		expected += item.Price * float64(item.Quantity)
	}
	assert.Equal(t, expected, cart.Total)
	assert.Equal(t, 62.5, cart.Total)
}

func TestNormalizeCartMalformedFieldsZeroOut(t *testing.T) {
	var payload CartPayload
	raw := `{
		"line_items": [
			{"id": 1, "title": "Broken price", "price": "abc", "quantity": 3},
			{"id": 2, "title": "No quantity", "price": "10.00"},
			{"id": 3, "title": "Null price", "price": null, "quantity": 1}
		]
	}`
	require.NoError(t, json.Unmarshal([]byte(raw), &payload))

	cart := NormalizeCart(payload)

	require.Len(t, cart.Items, 3)
	assert.Equal(t, 0.0, cart.Items[0].Price)
	assert.Equal(t, 3, cart.Items[0].Quantity)
	assert.Equal(t, 0, cart.Items[1].Quantity)
	assert.Equal(t, 0.0, cart.Items[2].Price)
	assert.Equal(t, 0.0, cart.Total)
}

func TestNormalizeCartEmpty(t *testing.T) {
	cart := NormalizeCart(CartPayload{})
	assert.Empty(t, cart.Items)
	assert.Equal(t, 0.0, cart.Total)
}

func TestCartProductIDs(t *testing.T) {
	cart := Cart{Items: []CartItem{
		{ID: "1"}, {ID: "2"}, {ID: "1"}, {ID: ""},
	}}
	assert.Equal(t, []string{"1", "2"}, cart.ProductIDs())
}

func TestToNumber(t *testing.T) {
	assert.Equal(t, 25.0, ToNumber("25.00"))
	assert.Equal(t, 12.5, ToNumber(12.5))
	assert.Equal(t, 0.0, ToNumber("abc"))
	assert.Equal(t, 0.0, ToNumber(nil))
	assert.Equal(t, 0.0, ToNumber([]string{"x"}))
}

func TestStringify(t *testing.T) {
	assert.Equal(t, "123", Stringify(float64(123)))
	assert.Equal(t, "abc", Stringify("abc"))
	assert.Equal(t, "", Stringify(nil))
}
