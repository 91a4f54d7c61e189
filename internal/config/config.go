package config

import (
	"strings"

	"github.com/spf13/viper"
)

// Config holds application configuration (env + Viper).
type Config struct {
	Env                string
	Port               string
	SessionSecret      string
	DatabaseURL        string
	RedisURL           string
	CORSAllowedOrigins []string
	AllowCrossSiteDev  bool

	// Model provider (conversational broker)
	ModelAPIURL string
	ModelAPIKey string
	ModelName   string

	// Peer/session memory provider
	MemoryAPIURL string
	MemoryAPIKey string

	// Billing provider
	BillingAPIURL        string
	BillingAPIKey        string
	BillingWebhookSecret string

	// Negotiation engine
	BrokerFeePercent int
	OfferExpiryHours int
}

// Load loads config from env and optional .env file.
func Load() (*Config, error) {
	viper.SetConfigFile(".env")
	_ = viper.ReadInConfig()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	port := viper.GetString("PORT")
	if port == "" {
		port = "8080"
	}
	env := viper.GetString("APP_ENV")
	if env == "" {
		env = "development"
	}

	feePercent := viper.GetInt("BROKER_FEE_PERCENT")
	if feePercent <= 0 {
		feePercent = 5
	}
	expiryHours := viper.GetInt("OFFER_EXPIRY_HOURS")
	if expiryHours <= 0 {
		expiryHours = 72
	}

	model := viper.GetString("MODEL_NAME")
	if model == "" {
		model = "gpt-4.1"
	}

	var origins []string
	for _, o := range strings.Split(viper.GetString("CORS_ALLOWED_ORIGINS"), ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}

	return &Config{
		Env:                 env,
		Port:                port,
		SessionSecret:       viper.GetString("SESSION_SECRET"),
		DatabaseURL:         viper.GetString("DATABASE_URL"),
		RedisURL:            viper.GetString("REDIS_URL"),
		CORSAllowedOrigins:  origins,
		AllowCrossSiteDev:   strings.EqualFold(viper.GetString("ALLOW_CROSS_SITE_DEV"), "true"),
		ModelAPIURL:         viper.GetString("MODEL_API_URL"),
		ModelAPIKey:         viper.GetString("MODEL_API_KEY"),
		ModelName:           model,
		MemoryAPIURL:        viper.GetString("MEMORY_API_URL"),
		MemoryAPIKey:        viper.GetString("MEMORY_API_KEY"),
		BillingAPIURL:       viper.GetString("BILLING_API_URL"),
		BillingAPIKey:       viper.GetString("BILLING_API_KEY"),
		BillingWebhookSecret: viper.GetString("BILLING_WEBHOOK_SECRET"),
		BrokerFeePercent:    feePercent,
		OfferExpiryHours:    expiryHours,
	}, nil
}
