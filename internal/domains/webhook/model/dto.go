package model

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	paymentmodel "openpayflow/internal/domains/payment/model"
)

// =====================================================
// REQUEST DTOS
// =====================================================

type CreateEndpointRequest struct {
	URL            string   `json:"url"`
	Secret         string   `json:"secret"`
	Events         []string `json:"events"`
	MerchantAPIKey string   `json:"merchantApiKey,omitempty"`
}

func (r CreateEndpointRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.URL, validation.Required, is.URL),
		validation.Field(&r.Secret, validation.Required, validation.Length(8, 256)),
		validation.Field(&r.Events, validation.Required, validation.Each(validation.By(knownEventType))),
	)
}

type UpdateEndpointRequest struct {
	URL      *string  `json:"url,omitempty"`
	Secret   *string  `json:"secret,omitempty"`
	Events   []string `json:"events,omitempty"`
	IsActive *bool    `json:"isActive,omitempty"`
}

func (r UpdateEndpointRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.URL, is.URL),
		validation.Field(&r.Secret, validation.Length(8, 256)),
		validation.Field(&r.Events, validation.Each(validation.By(knownEventType))),
	)
}

func knownEventType(value interface{}) error {
	s, _ := value.(string)
	if !paymentmodel.IsKnownEventType(s) {
		return validation.NewError("validation_unknown_event", "unknown event type")
	}
	return nil
}

// ListDeliveriesQuery carries the filter set of the delivery log.
type ListDeliveriesQuery struct {
	Status string
	Limit  int
	Offset int
}

func (q *ListDeliveriesQuery) Normalize() {
	if q.Limit <= 0 {
		q.Limit = 20
	}
	if q.Limit > 100 {
		q.Limit = 100
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
}
