package gateway

import (
	"context"
	"fmt"

	"procure-pay/internal/core/domain"
	"procure-pay/internal/core/ports"

	"github.com/rs/zerolog"
	"github.com/stripe/stripe-go/v72"
	"github.com/stripe/stripe-go/v72/paymentintent"
)

// StripeGateway implements ports.GatewayClient against the Stripe API.
// The payment intent ID doubles as the gateway reference.
type StripeGateway struct {
	log zerolog.Logger
}

// NewStripeGateway creates a Stripe-backed gateway client. The secret key is
// process-wide state in the Stripe SDK.
func NewStripeGateway(secretKey string, log zerolog.Logger) *StripeGateway {
	stripe.Key = secretKey
	return &StripeGateway{log: log}
}

// Charge creates a payment intent for the order.
func (g *StripeGateway) Charge(ctx context.Context, req ports.ChargeRequest) (*ports.ChargeResult, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(req.Amount),
		Currency: stripe.String(req.Currency),
	}
	params.Context = ctx
	params.AddMetadata("order_id", req.OrderID)
	params.AddMetadata("method", string(req.Method))

	pi, err := paymentintent.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe create payment intent: %w", err)
	}

	g.log.Debug().
		Str("order_id", req.OrderID).
		Str("gateway_ref", pi.ID).
		Str("stripe_status", string(pi.Status)).
		Msg("stripe charge created")

	return &ports.ChargeResult{
		GatewayRef:  pi.ID,
		Status:      mapIntentStatus(pi),
		RawResponse: string(pi.Status),
	}, nil
}

// Verify fetches the intent and reports its authoritative status.
func (g *StripeGateway) Verify(ctx context.Context, gatewayRef string) (domain.GatewayStatus, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx

	pi, err := paymentintent.Get(gatewayRef, params)
	if err != nil {
		return domain.GatewayStatusUnknown, fmt.Errorf("stripe get payment intent: %w", err)
	}
	return mapIntentStatus(pi), nil
}

func mapIntentStatus(pi *stripe.PaymentIntent) domain.GatewayStatus {
	switch pi.Status {
	case stripe.PaymentIntentStatusSucceeded:
		if refunded(pi) {
			return domain.GatewayStatusRefunded
		}
		return domain.GatewayStatusConfirmed
	case stripe.PaymentIntentStatusCanceled:
		return domain.GatewayStatusDeclined
	default:
		// requires_action, processing etc. are not outcomes yet.
		return domain.GatewayStatusUnknown
	}
}

func refunded(pi *stripe.PaymentIntent) bool {
	if pi.Charges == nil {
		return false
	}
	for _, ch := range pi.Charges.Data {
		if ch.Refunded {
			return true
		}
	}
	return false
}
