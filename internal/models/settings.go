package models

// RateLimitSettings holds the per-client request rate (e.g. "5-S", "100-M").
type RateLimitSettings struct {
	Rate string `json:"rate"`
}

// CORSSettings holds the allowed origins and related CORS options.
type CORSSettings struct {
	AllowedOrigins   []string `json:"allowedOrigins"`
	AllowCredentials bool     `json:"allowCredentials"`
	MaxAge           int      `json:"maxAge"`
}
