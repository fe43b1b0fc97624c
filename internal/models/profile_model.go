package models

import (
	"time"
)

type Profile struct {
	UserID             int64     `db:"user_id" json:"user_id"`
	SubscriptionTier   string    `db:"subscription_tier" json:"subscription_tier"`
	PostsThisMonth     int       `db:"posts_this_month" json:"posts_this_month"`
	PostLimit          int       `db:"post_limit" json:"post_limit"`
	StripeCustomerID   string    `db:"stripe_customer_id" json:"-"`
	SubscriptionStatus string    `db:"subscription_status" json:"subscription_status"`
	CreatedAt          time.Time `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time `db:"updated_at" json:"updated_at"`
}

const (
	TierStarter      = "starter"
	TierCreator      = "creator"
	TierProfessional = "professional"
	TierEnterprise   = "enterprise"
)

const (
	SubscriptionTrialing  = "trialing"
	SubscriptionActive    = "active"
	SubscriptionPastDue   = "past_due"
	SubscriptionCancelled = "cancelled"
)
