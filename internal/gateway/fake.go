package gateway

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
)

// Fake is an in-process gateway for local runs and tests. Intents start in
// processing and move only when the test (or operator) says so. Webhook
// payloads are JSON signed with HMAC-SHA256 over the raw body. With an empty
// secret every webhook is rejected.
type Fake struct {
	mu      sync.Mutex
	secret  []byte
	seq     int
	intents map[string]Intent
	errs    map[string]error
	stalled map[string]bool
	lookups map[string]int
}

func NewFake(webhookSecret string) *Fake {
	return &Fake{
		secret:  []byte(webhookSecret),
		intents: make(map[string]Intent),
		errs:    make(map[string]error),
		stalled: make(map[string]bool),
		lookups: make(map[string]int),
	}
}

func (f *Fake) CreateIntent(ctx context.Context, amount decimal.Decimal, currency string, metadata map[string]string) (Intent, error) {
	if _, err := ToMinorUnits(amount); err != nil {
		return Intent{}, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.seq++
	id := fmt.Sprintf("pi_fake_%d", f.seq)
	intent := Intent{
		ID:           id,
		ClientSecret: id + "_secret",
		Amount:       amount,
		Currency:     currency,
		Status:       StatusProcessing,
	}
	f.intents[id] = intent
	return intent, nil
}

func (f *Fake) GetIntent(ctx context.Context, id string) (Intent, error) {
	f.mu.Lock()
	f.lookups[id]++
	stalled := f.stalled[id]
	err := f.errs[id]
	intent, ok := f.intents[id]
	f.mu.Unlock()

	if stalled {
		<-ctx.Done()
		return Intent{}, fmt.Errorf("%w: %v", ErrTransient, ctx.Err())
	}
	if err != nil {
		return Intent{}, err
	}
	if !ok {
		return Intent{}, fmt.Errorf("%w: no such intent %s", ErrTransient, id)
	}
	return intent, nil
}

// SetStatus moves an intent to status and records the payment method.
func (f *Fake) SetStatus(id string, status Status, paymentMethod string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	intent := f.intents[id]
	intent.ID = id
	intent.Status = status
	intent.PaymentMethod = paymentMethod
	f.intents[id] = intent
}

// FailLookups makes GetIntent return err for id until cleared with nil.
func (f *Fake) FailLookups(id string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.errs, id)
		return
	}
	f.errs[id] = err
}

// Stall makes GetIntent for id block until its context is done.
func (f *Fake) Stall(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stalled[id] = true
}

func (f *Fake) Lookups(id string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lookups[id]
}

type fakeEvent struct {
	ID            string `json:"id"`
	Type          string `json:"type"`
	IntentID      string `json:"intent_id"`
	PaymentMethod string `json:"payment_method,omitempty"`
}

// SignedEvent builds a webhook body for the intent and its signature.
func (f *Fake) SignedEvent(eventID, eventType, intentID, paymentMethod string) ([]byte, string) {
	payload, _ := json.Marshal(fakeEvent{ID: eventID, Type: eventType, IntentID: intentID, PaymentMethod: paymentMethod})
	return payload, f.sign(payload)
}

func (f *Fake) ParseWebhook(payload []byte, signature string) (Event, error) {
	if len(f.secret) == 0 {
		return Event{}, fmt.Errorf("%w: no webhook secret configured", ErrInvalidSignature)
	}
	want, err := hex.DecodeString(signature)
	if err != nil || !hmac.Equal(want, f.mac(payload)) {
		return Event{}, ErrInvalidSignature
	}

	var fe fakeEvent
	if err := json.Unmarshal(payload, &fe); err != nil {
		return Event{}, fmt.Errorf("decode event: %w", err)
	}

	out := Event{ID: fe.ID, Type: fe.Type}
	var status Status
	switch fe.Type {
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

	f.mu.Lock()
	intent := f.intents[fe.IntentID]
	f.mu.Unlock()
	intent.ID = fe.IntentID
	intent.Status = status
	intent.PaymentMethod = fe.PaymentMethod

	out.Relevant = true
	out.Intent = intent
	return out, nil
}

func (f *Fake) sign(payload []byte) string {
	return hex.EncodeToString(f.mac(payload))
}

func (f *Fake) mac(payload []byte) []byte {
	m := hmac.New(sha256.New, f.secret)
	m.Write(payload)
	return m.Sum(nil)
}
