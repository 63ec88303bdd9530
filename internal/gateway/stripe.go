package gateway

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/sol1corejz/workwise/internal/logger"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"
	"go.uber.org/zap"
)

const (
	EventIntentSucceeded  = "payment_intent.succeeded"
	EventIntentFailed     = "payment_intent.payment_failed"
	EventIntentCanceled   = "payment_intent.canceled"
	EventIntentProcessing = "payment_intent.processing"
)

type Stripe struct {
	api           *client.API
	webhookSecret string
}

func NewStripe(secretKey, webhookSecret string) *Stripe {
	return &Stripe{
		api:           client.New(secretKey, nil),
		webhookSecret: webhookSecret,
	}
}

func (s *Stripe) CreateIntent(ctx context.Context, amount decimal.Decimal, currency string, metadata map[string]string) (Intent, error) {
	cents, err := ToMinorUnits(amount)
	if err != nil {
		return Intent{}, err
	}

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(cents),
		Currency: stripe.String(currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}

	pi, err := s.api.PaymentIntents.New(params)
	if err != nil {
		logger.Log.Warn("Stripe create intent failed", zap.Error(err))
		return Intent{}, fmt.Errorf("%w: create intent: %v", ErrTransient, err)
	}
	return intentFromStripe(pi), nil
}

func (s *Stripe) GetIntent(ctx context.Context, id string) (Intent, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	params.AddExpand("payment_method")

	pi, err := s.api.PaymentIntents.Get(id, params)
	if err != nil {
		return Intent{}, fmt.Errorf("%w: get intent %s: %v", ErrTransient, id, err)
	}
	return intentFromStripe(pi), nil
}

func (s *Stripe) ParseWebhook(payload []byte, signature string) (Event, error) {
	if s.webhookSecret == "" {
		return Event{}, fmt.Errorf("%w: no webhook secret configured", ErrInvalidSignature)
	}
	ev, err := webhook.ConstructEventWithOptions(payload, signature, s.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	out := Event{ID: ev.ID, Type: string(ev.Type)}
	var status Status
	switch out.Type {
	case EventIntentSucceeded:
		status = StatusSucceeded
	case EventIntentFailed:
		status = StatusFailed
	case EventIntentCanceled:
		status = StatusCanceled
	case EventIntentProcessing:
		status = StatusProcessing
	default:
		return out, nil
	}

	var pi stripe.PaymentIntent
	if ev.Data == nil {
		return Event{}, fmt.Errorf("event %s has no data", ev.ID)
	}
	if err := json.Unmarshal(ev.Data.Raw, &pi); err != nil {
		return Event{}, fmt.Errorf("decode payment intent: %w", err)
	}
	out.Relevant = true
	out.Intent = intentFromStripe(&pi)
	out.Intent.Status = status
	return out, nil
}

func intentFromStripe(pi *stripe.PaymentIntent) Intent {
	intent := Intent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Amount:       FromMinorUnits(pi.Amount),
		Currency:     string(pi.Currency),
		Status:       statusFromStripe(pi),
	}
	switch {
	case pi.PaymentMethod != nil && pi.PaymentMethod.Type != "":
		intent.PaymentMethod = string(pi.PaymentMethod.Type)
	case len(pi.PaymentMethodTypes) > 0:
		intent.PaymentMethod = pi.PaymentMethodTypes[0]
	}
	return intent
}

func statusFromStripe(pi *stripe.PaymentIntent) Status {
	switch pi.Status {
	case stripe.PaymentIntentStatusSucceeded:
		return StatusSucceeded
	case stripe.PaymentIntentStatusCanceled:
		return StatusCanceled
	case stripe.PaymentIntentStatusRequiresPaymentMethod:
		// Stripe drops back to requires_payment_method after a declined attempt.
		if pi.LastPaymentError != nil {
			return StatusFailed
		}
		return StatusProcessing
	default:
		return StatusProcessing
	}
}
