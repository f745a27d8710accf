package config

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Config holds everything the app reads from the environment. It is loaded once
// at startup and passed down explicitly; nothing reads os.Getenv at request time.
type Config struct {
	Port       string
	DBURL      string
	JWTSecret  string
	CORSOrigin string

	StripeSecretKey     string
	StripePublicKey     string
	StripeWebhookSecret string

	// Fallback price for premium plans seeded without their own Stripe price.
	StripeProPriceID string

	CheckoutSuccessURL string
	CheckoutCancelURL  string
}

func Load() Config {
	if err := godotenv.Load(); err != nil {
		log.Info().Msg("No .env file found. Using system environment variables.")
	}

	return Config{
		Port:       getEnv("PORT", "8080"),
		DBURL:      mustEnv("DB_URL"),
		JWTSecret:  mustEnv("JWT_SECRET"),
		CORSOrigin: getEnv("CORS_ORIGIN", "http://localhost:5173"),

		StripeSecretKey:     mustEnv("STRIPE_SECRET_KEY"),
		StripePublicKey:     getEnv("STRIPE_PUBLIC_KEY", ""),
		StripeWebhookSecret: mustEnv("STRIPE_WEBHOOK_SECRET"),
		StripeProPriceID:    getEnv("STRIPE_PRO_PRICE_ID", ""),

		CheckoutSuccessURL: getEnv("CHECKOUT_SUCCESS_URL", "http://127.0.0.1:8000/checkout-success/"),
		CheckoutCancelURL:  getEnv("CHECKOUT_CANCEL_URL", "http://127.0.0.1:8000/pricing/"),
	}
}

func mustEnv(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatal().Str("key", key).Msg("Missing required environment variable")
	}
	return v
}

func getEnv(key string, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}
