package payments

import (
	"context"
	"errors"
	"strings"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"
)

var ErrDisabled = errors.New("payments disabled")

type DepositRequest struct {
	AppointmentID string
	AmountCents   int64
	Currency      string
	CustomerEmail string
	Description   string
}

type Deposit struct {
	IntentID     string
	ClientSecret string
}

type Gateway interface {
	CreateDeposit(ctx context.Context, req DepositRequest) (Deposit, error)
}

// DepositCents returns percent of priceCents, rounded down. Zero means no deposit.
func DepositCents(priceCents int64, percent int) int64 {
	if priceCents <= 0 || percent <= 0 {
		return 0
	}
	if percent > 100 {
		percent = 100
	}
	return priceCents * int64(percent) / 100
}

// PaymentIntentCreator is the part of the Stripe client used for deposits.
type PaymentIntentCreator interface {
	New(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
}

type StripeGateway struct {
	intents PaymentIntentCreator
}

func NewStripeGateway(secretKey string) *StripeGateway {
	sc := client.New(secretKey, nil)
	return &StripeGateway{intents: sc.PaymentIntents}
}

func NewStripeGatewayWith(intents PaymentIntentCreator) *StripeGateway {
	return &StripeGateway{intents: intents}
}

func (g *StripeGateway) CreateDeposit(ctx context.Context, req DepositRequest) (Deposit, error) {
	if req.AmountCents <= 0 {
		return Deposit{}, errors.New("deposit amount must be positive")
	}
	currency := strings.ToLower(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = "usd"
	}

	params := &stripe.PaymentIntentParams{
		Amount:      stripe.Int64(req.AmountCents),
		Currency:    stripe.String(currency),
		Description: stripe.String(req.Description),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	if req.CustomerEmail != "" {
		params.ReceiptEmail = stripe.String(req.CustomerEmail)
	}
	params.Context = ctx
	params.AddMetadata("appointment_id", req.AppointmentID)
	// One intent per appointment even if the call is retried.
	params.IdempotencyKey = stripe.String("deposit-" + req.AppointmentID)

	pi, err := g.intents.New(params)
	if err != nil {
		return Deposit{}, err
	}
	return Deposit{IntentID: pi.ID, ClientSecret: pi.ClientSecret}, nil
}

// Noop is used when no Stripe key is configured.
type Noop struct{}

func (Noop) CreateDeposit(context.Context, DepositRequest) (Deposit, error) {
	return Deposit{}, ErrDisabled
}
