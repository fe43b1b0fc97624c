package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	config "github.com/maheshrc27/broadcast/configs"
	"github.com/maheshrc27/broadcast/internal/models"
	"github.com/maheshrc27/broadcast/internal/repository"
	"github.com/maheshrc27/broadcast/internal/transfer"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"
)

const trialPeriodDays = 14

type BillingService interface {
	Checkout(ctx context.Context, userID int64, priceID string) (*transfer.SessionURL, error)
	Portal(ctx context.Context, userID int64) (*transfer.SessionURL, error)
	HandleWebhook(ctx context.Context, payload []byte, signature string) error
}

// stripeGateway is the slice of the Stripe API billing needs.
type stripeGateway interface {
	NewCustomer(params *stripe.CustomerParams) (*stripe.Customer, error)
	NewCheckoutSession(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
	NewPortalSession(params *stripe.BillingPortalSessionParams) (*stripe.BillingPortalSession, error)
}

type stripeClient struct {
	api *client.API
}

func (c stripeClient) NewCustomer(params *stripe.CustomerParams) (*stripe.Customer, error) {
	return c.api.Customers.New(params)
}

func (c stripeClient) NewCheckoutSession(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	return c.api.CheckoutSessions.New(params)
}

func (c stripeClient) NewPortalSession(params *stripe.BillingPortalSessionParams) (*stripe.BillingPortalSession, error) {
	return c.api.BillingPortalSessions.New(params)
}

type billingService struct {
	frontendURL   string
	webhookSecret string
	priceTiers    map[string]string
	stripe        stripeGateway
	u             repository.UserRepository
	p             repository.ProfileRepository
}

func NewBillingService(cfg config.Config, u repository.UserRepository, p repository.ProfileRepository) BillingService {
	return &billingService{
		frontendURL:   cfg.FrontendURL,
		webhookSecret: cfg.Stripe.WebhookSecret,
		priceTiers:    cfg.Stripe.PriceTiers,
		stripe:        stripeClient{api: client.New(cfg.Stripe.SecretKey, nil)},
		u:             u,
		p:             p,
	}
}

func (s *billingService) Checkout(ctx context.Context, userID int64, priceID string) (*transfer.SessionURL, error) {
	if userID == 0 {
		return nil, ErrUnauthorized
	}
	if priceID == "" {
		return nil, invalidInput("price_id is required")
	}

	customerID, err := s.ensureCustomer(ctx, userID)
	if err != nil {
		return nil, err
	}

	uid := strconv.FormatInt(userID, 10)
	params := &stripe.CheckoutSessionParams{
		Customer:          stripe.String(customerID),
		ClientReferenceID: stripe.String(uid),
		Mode:              stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{Price: stripe.String(priceID), Quantity: stripe.Int64(1)},
		},
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			TrialPeriodDays: stripe.Int64(trialPeriodDays),
		},
		SuccessURL: stripe.String(s.frontendURL + "/dashboard?checkout=success"),
		CancelURL:  stripe.String(s.frontendURL + "/pricing?checkout=cancelled"),
	}
	params.Context = ctx
	params.AddMetadata("user_id", uid)
	if tier, ok := s.priceTiers[priceID]; ok {
		params.AddMetadata("tier", tier)
	}

	session, err := s.stripe.NewCheckoutSession(params)
	if err != nil {
		slog.Error("stripe checkout failed", "user_id", userID, "error", err)
		return nil, upstream("Failed to create checkout session")
	}
	return &transfer.SessionURL{SessionID: session.ID, URL: session.URL}, nil
}

func (s *billingService) ensureCustomer(ctx context.Context, userID int64) (string, error) {
	profile, err := s.p.GetByUserID(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("failed to load profile: %w", err)
	}
	if profile != nil && profile.StripeCustomerID != "" {
		return profile.StripeCustomerID, nil
	}

	user, isExist, err := s.u.GetByID(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("failed to load user: %w", err)
	}
	if !isExist {
		return "", notFound("User doesn't exist")
	}

	params := &stripe.CustomerParams{Email: stripe.String(user.Email), Name: stripe.String(user.Name)}
	params.Context = ctx
	params.AddMetadata("user_id", strconv.FormatInt(userID, 10))

	customer, err := s.stripe.NewCustomer(params)
	if err != nil {
		slog.Error("stripe customer creation failed", "user_id", userID, "error", err)
		return "", upstream("Failed to create customer")
	}

	if err := s.p.SetStripeCustomer(ctx, userID, customer.ID); err != nil {
		return "", fmt.Errorf("failed to save customer: %w", err)
	}
	return customer.ID, nil
}

func (s *billingService) Portal(ctx context.Context, userID int64) (*transfer.SessionURL, error) {
	if userID == 0 {
		return nil, ErrUnauthorized
	}

	profile, err := s.p.GetByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}
	if profile == nil || profile.StripeCustomerID == "" {
		return nil, fmt.Errorf("no billing customer for user %d", userID)
	}

	params := &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(profile.StripeCustomerID),
		ReturnURL: stripe.String(s.frontendURL + "/dashboard"),
	}
	params.Context = ctx

	session, err := s.stripe.NewPortalSession(params)
	if err != nil {
		slog.Error("stripe portal failed", "user_id", userID, "error", err)
		return nil, upstream("Failed to create portal session")
	}
	return &transfer.SessionURL{SessionID: session.ID, URL: session.URL}, nil
}

func (s *billingService) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	event, err := webhook.ConstructEventWithOptions(payload, signature, s.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		slog.Info(err.Error())
		return invalidInput("Invalid webhook signature")
	}

	switch event.Type {
	case "checkout.session.completed":
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return invalidInput("Malformed checkout session")
		}
		if session.Customer == nil {
			return nil
		}
		if userID, err := strconv.ParseInt(session.ClientReferenceID, 10, 64); err == nil && userID != 0 {
			if err := s.p.SetStripeCustomer(ctx, userID, session.Customer.ID); err != nil {
				return err
			}
		}
		return s.p.UpdateSubscriptionByCustomer(ctx, session.Customer.ID, session.Metadata["tier"], models.SubscriptionTrialing)

	case "customer.subscription.created", "customer.subscription.updated":
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return invalidInput("Malformed subscription")
		}
		if sub.Customer == nil {
			return nil
		}
		return s.p.UpdateSubscriptionByCustomer(ctx, sub.Customer.ID, s.tierOf(&sub), subscriptionStatus(sub.Status))

	case "customer.subscription.deleted":
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return invalidInput("Malformed subscription")
		}
		if sub.Customer == nil {
			return nil
		}
		return s.p.UpdateSubscriptionByCustomer(ctx, sub.Customer.ID, models.TierStarter, models.SubscriptionCancelled)

	case "invoice.payment_failed", "invoice.payment_succeeded":
		var inv stripe.Invoice
		if err := json.Unmarshal(event.Data.Raw, &inv); err != nil {
			return invalidInput("Malformed invoice")
		}
		if inv.Customer == nil {
			return nil
		}
		status := models.SubscriptionActive
		if event.Type == "invoice.payment_failed" {
			status = models.SubscriptionPastDue
		}
		return s.p.UpdateSubscriptionByCustomer(ctx, inv.Customer.ID, "", status)
	}

	slog.Info("ignoring stripe event", "type", event.Type)
	return nil
}

// tierOf returns "" when the subscription's price is not mapped, which
// leaves the stored tier unchanged.
func (s *billingService) tierOf(sub *stripe.Subscription) string {
	if sub.Items == nil {
		return ""
	}
	for _, item := range sub.Items.Data {
		if item.Price == nil {
			continue
		}
		if tier, ok := s.priceTiers[item.Price.ID]; ok {
			return tier
		}
	}
	return ""
}

func subscriptionStatus(status stripe.SubscriptionStatus) string {
	switch status {
	case stripe.SubscriptionStatusTrialing:
		return models.SubscriptionTrialing
	case stripe.SubscriptionStatusActive:
		return models.SubscriptionActive
	case stripe.SubscriptionStatusPastDue, stripe.SubscriptionStatusUnpaid:
		return models.SubscriptionPastDue
	case stripe.SubscriptionStatusCanceled, stripe.SubscriptionStatusIncompleteExpired:
		return models.SubscriptionCancelled
	}
	return ""
}
