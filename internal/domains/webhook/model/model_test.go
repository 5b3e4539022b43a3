package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSubscribesTo(t *testing.T) {
	all := &WebhookEndpoint{Events: nil}
	assert.True(t, all.SubscribesTo("payment.created"))
	assert.True(t, all.SubscribesTo("refund.created"))

	scoped := &WebhookEndpoint{Events: []string{"refund.created"}}
	assert.True(t, scoped.SubscribesTo("refund.created"))
	assert.False(t, scoped.SubscribesTo("payment.created"))
}

func TestDeliveryIsTerminal(t *testing.T) {
	cases := map[string]bool{
		DeliveryStatusPending:   false,
		DeliveryStatusFailed:    false,
		DeliveryStatusDelivered: true,
		DeliveryStatusAbandoned: true,
	}
	for status, want := range cases {
		d := &WebhookDelivery{Status: status}
		assert.Equal(t, want, d.IsTerminal(), status)
	}
}

func TestCreateEndpointRequest_Validate(t *testing.T) {
	valid := CreateEndpointRequest{
		URL:    "https://example.com/hooks",
		Secret: "whsec_long_enough",
		Events: []string{"payment.created"},
	}
	assert.NoError(t, valid.Validate())

	cases := []struct {
		name   string
		mutate func(r *CreateEndpointRequest)
	}{
		{"missing url", func(r *CreateEndpointRequest) { r.URL = "" }},
		{"malformed url", func(r *CreateEndpointRequest) { r.URL = "not a url" }},
		{"missing secret", func(r *CreateEndpointRequest) { r.Secret = "" }},
		{"short secret", func(r *CreateEndpointRequest) { r.Secret = "short" }},
		{"missing events", func(r *CreateEndpointRequest) { r.Events = nil }},
		{"empty events", func(r *CreateEndpointRequest) { r.Events = []string{} }},
		{"unknown event type", func(r *CreateEndpointRequest) { r.Events = []string{"payment.exploded"} }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := valid
			tc.mutate(&req)
			assert.Error(t, req.Validate())
		})
	}
}

func TestUpdateEndpointRequest_Validate(t *testing.T) {
	assert.NoError(t, (&UpdateEndpointRequest{}).Validate())

	url := "https://example.com/v2/hooks"
	assert.NoError(t, (&UpdateEndpointRequest{URL: &url}).Validate())

	bad := "not a url"
	assert.Error(t, (&UpdateEndpointRequest{URL: &bad}).Validate())

	assert.Error(t, (&UpdateEndpointRequest{Events: []string{"payment.exploded"}}).Validate())
}
