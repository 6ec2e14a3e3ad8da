package lib

import (
	"context"
	"encoding/json"
	"fms/src/apperror"
	"fms/src/config"
	"fms/src/types"
	"log"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
)

var stripeClient *stripe.Client

func GetStripeClient(apiKey string) *stripe.Client {
	if stripeClient != nil {
		return stripeClient
	}
	sc := stripe.NewClient(apiKey)
	stripeClient = sc

	return sc
}

// StripeGateway takes card payments through hosted Checkout Sessions. The
// payment id travels in the session metadata and comes back on the webhook.
type StripeGateway struct {
	cfg    config.StripeConfig
	client *stripe.Client
}

func NewStripeGateway(cfg config.StripeConfig, client *stripe.Client) *StripeGateway {
	return &StripeGateway{cfg: cfg, client: client}
}

func (s *StripeGateway) Method() types.PaymentMethod {
	return types.PAYMENT_STRIPE
}

func (s *StripeGateway) Checkout(ctx context.Context, in types.CheckoutInput) (*types.CheckoutOutput, error) {
	if in.Amount <= 0 {
		return nil, apperror.ErrInvalidAmount
	}
	metadata := map[string]string{"paymentId": in.PaymentID}
	params := &stripe.CheckoutSessionCreateParams{
		SuccessURL:        stripe.String(s.cfg.SuccessURL),
		CancelURL:         stripe.String(s.cfg.CancelURL),
		Mode:              stripe.String("payment"),
		ClientReferenceID: stripe.String(in.PaymentID),
		Metadata:          metadata,
		LineItems: []*stripe.CheckoutSessionCreateLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionCreateLineItemPriceDataParams{
					Currency:   stripe.String(s.cfg.Currency),
					UnitAmount: stripe.Int64(in.Amount),
					ProductData: &stripe.CheckoutSessionCreateLineItemPriceDataProductDataParams{
						Name: stripe.String(in.OrderInfo),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
	}
	cs, err := s.client.V1CheckoutSessions.Create(ctx, params)
	if err != nil {
		log.Printf("[Stripe] checkout for payment %s failed: %s\n", in.PaymentID, err.Error())
		return nil, err
	}
	log.Printf("[Stripe] CheckoutSessionID: %s\n", cs.ID)
	return &types.CheckoutOutput{PayURL: cs.URL, ProviderRef: cs.ID}, nil
}

// ParseWebhook verifies the Stripe-Signature header and turns checkout
// session events into a callback result. Events that do not settle a payment
// return nil without error.
func (s *StripeGateway) ParseWebhook(payload []byte, signature string) (*types.CallbackResult, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, s.cfg.WebhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		log.Printf("[Stripe] Error verifying webhook signature: %s\n", err.Error())
		return nil, apperror.ErrInvalidSignature
	}
	log.Printf("[StripeEvent] %s\n", event.Type)

	var success bool
	switch event.Type {
	case "checkout.session.completed", "checkout.session.async_payment_succeeded":
		success = true
	case "checkout.session.expired", "checkout.session.async_payment_failed":
		success = false
	default:
		return nil, nil
	}
	var cs stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &cs); err != nil {
		log.Printf("[Stripe] Error parsing CheckoutSession: %s\n", err.Error())
		return nil, apperror.New(apperror.Validation, apperror.CodeInvalidRequest, "malformed checkout session")
	}
	// completed fires before delayed methods settle
	if event.Type == "checkout.session.completed" && cs.PaymentStatus == stripe.CheckoutSessionPaymentStatusUnpaid {
		return nil, nil
	}
	paymentID := cs.Metadata["paymentId"]
	if paymentID == "" {
		paymentID = cs.ClientReferenceID
	}
	return &types.CallbackResult{
		PaymentID:     paymentID,
		Method:        types.PAYMENT_STRIPE,
		Success:       success,
		Amount:        cs.AmountTotal,
		ProviderTxnID: cs.ID,
		ResultCode:    string(event.Type),
		Message:       string(cs.PaymentStatus),
	}, nil
}
