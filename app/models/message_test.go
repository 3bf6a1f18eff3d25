package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func TestMessage_MarkPaymentRequestPaidKeepsOtherFields(t *testing.T) {
	m := &Message{
		Type:    MessageTypePaymentRequest,
		Payload: datatypes.JSON(`{"food_item_id":20,"title":"Nasi goreng","status":"awaiting_payment","quantity":2,"pickup_location":"Gate A","notes":"no chili","options":{"spicy":true}}`),
	}

	require.NoError(t, m.MarkPaymentRequestPaid("FOOD-1"))

	p, ok := m.PaymentRequest()
	require.True(t, ok)
	assert.Equal(t, PaymentRequestPaid, p.Status)
	assert.Equal(t, "FOOD-1", p.OrderID)
	assert.Equal(t, uint(20), p.FoodItemID)

	var fields map[string]interface{}
	require.NoError(t, json.Unmarshal(m.Payload, &fields))
	assert.Equal(t, float64(2), fields["quantity"])
	assert.Equal(t, "Gate A", fields["pickup_location"])
	assert.Equal(t, "no chili", fields["notes"])
	assert.Equal(t, map[string]interface{}{"spicy": true}, fields["options"])
}

func TestMessage_MarkPaymentRequestPaidRejectsInvalidPayload(t *testing.T) {
	m := &Message{Type: MessageTypePaymentRequest, Payload: datatypes.JSON(`[1,2]`)}
	assert.Error(t, m.MarkPaymentRequestPaid("FOOD-1"))
	assert.JSONEq(t, `[1,2]`, string(m.Payload))
}
