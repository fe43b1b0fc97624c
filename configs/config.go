package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type R2 struct {
	AccountID  string
	AccessKey  string
	SecretKey  string
	BucketName string
	PublicURL  string
}

type OAuthClient struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
}

type Stripe struct {
	SecretKey     string
	WebhookSecret string
	// PriceTiers maps a Stripe price id to the subscription tier it grants.
	PriceTiers map[string]string
}

type RateLimit struct {
	Enabled        bool
	Capacity       int
	RefillInterval time.Duration
	TTL            time.Duration
	Prefix         string
}

type Config struct {
	Port               string
	Google             OAuthClient
	Twitter            OAuthClient
	LinkedIn           OAuthClient
	MastodonRedirect   string
	PostgresURI        string
	RedisURI           string
	FrontendURL        string
	R2                 R2
	Stripe             Stripe
	RateLimit          RateLimit
	SecretKey          string
	CookieName         string
	CronSecret         string
	StarterPostLimit   int
	AdapterTimeout     time.Duration
	PublishConcurrency int
	EnableScheduler    bool
}

func LoadConfig() *Config {
	return &Config{
		Port: getEnv("PORT", "3000"),
		Google: OAuthClient{
			ClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
			ClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
			RedirectURI:  getEnv("GOOGLE_REDIRECT_URI", "http://localhost:3000/login/callback"),
		},
		Twitter: OAuthClient{
			ClientID:     getEnv("TWITTER_CLIENT_ID", ""),
			ClientSecret: getEnv("TWITTER_CLIENT_SECRET", ""),
			RedirectURI:  getEnv("TWITTER_REDIRECT_URI", "http://localhost:3000/auth/twitter/callback"),
		},
		LinkedIn: OAuthClient{
			ClientID:     getEnv("LINKEDIN_CLIENT_ID", ""),
			ClientSecret: getEnv("LINKEDIN_CLIENT_SECRET", ""),
			RedirectURI:  getEnv("LINKEDIN_REDIRECT_URI", "http://localhost:3000/auth/linkedin/callback"),
		},
		MastodonRedirect: getEnv("MASTODON_REDIRECT_URI", "http://localhost:3000/auth/mastodon/callback"),
		PostgresURI:      getEnv("POSTGRES_URI", ""),
		RedisURI:         getEnv("REDIS_URI", "localhost:6379"),
		FrontendURL:      getEnv("FRONTEND_URL", "http://localhost:5173"),
		R2: R2{
			AccountID:  getEnv("R2_ACCOUNT_ID", ""),
			AccessKey:  getEnv("R2_ACCESS_KEY", ""),
			SecretKey:  getEnv("R2_SECRET_KEY", ""),
			BucketName: getEnv("R2_BUCKET_NAME", ""),
			PublicURL:  strings.TrimRight(getEnv("R2_PUBLIC_URL", ""), "/"),
		},
		Stripe: Stripe{
			SecretKey:     getEnv("STRIPE_SECRET_KEY", ""),
			WebhookSecret: getEnv("STRIPE_WEBHOOK_SECRET", ""),
			PriceTiers:    parsePriceTiers(getEnv("STRIPE_PRICE_TIERS", "")),
		},
		RateLimit: RateLimit{
			Enabled:        getEnvBool("RATE_LIMIT_ENABLED", true),
			Capacity:       getEnvInt("RATE_LIMIT_CAPACITY", 30),
			RefillInterval: getEnvDuration("RATE_LIMIT_REFILL_INTERVAL", 2*time.Second),
			TTL:            getEnvDuration("RATE_LIMIT_TTL", 10*time.Minute),
			Prefix:         getEnv("RATE_LIMIT_PREFIX", "rl"),
		},
		SecretKey:          getEnv("SECRET_KEY", ""),
		CookieName:         getEnv("COOKIE_NAME", "broadcast_session"),
		CronSecret:         getEnv("CRON_SECRET", ""),
		StarterPostLimit:   getEnvInt("STARTER_POST_LIMIT", 10),
		AdapterTimeout:     getEnvDuration("ADAPTER_TIMEOUT", 60*time.Second),
		PublishConcurrency: getEnvInt("PUBLISH_CONCURRENCY", 4),
		EnableScheduler:    getEnvBool("ENABLE_SCHEDULER", true),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return n
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if b, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return b
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return d
	}
	return defaultValue
}

// parsePriceTiers reads "price_abc:creator,price_def:professional".
func parsePriceTiers(raw string) map[string]string {
	tiers := make(map[string]string)
	for _, pair := range strings.Split(raw, ",") {
		priceID, tier, ok := strings.Cut(strings.TrimSpace(pair), ":")
		if !ok || priceID == "" || tier == "" {
			continue
		}
		tiers[priceID] = tier
	}
	return tiers
}
