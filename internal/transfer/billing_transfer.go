package transfer

type CheckoutRequest struct {
	PriceID string `json:"price_id"`
}

type SessionURL struct {
	SessionID string `json:"session_id,omitempty"`
	URL       string `json:"url"`
}

type PlatformLimit struct {
	CanConnect   bool `json:"can_connect"`
	CurrentCount int  `json:"current_count"`
	Limit        int  `json:"limit"`
}
