package config

import "time"

type ServiceConfig struct {
	Name                string       `yaml:"name"`
	Environment         string       `yaml:"environment"`
	Version             string       `yaml:"version"`
	ClientURL           string       `yaml:"client_url"`
	StripeSecretKey     string       `yaml:"stripe_secret_key"`
	StripeWebhookSecret string       `yaml:"stripe_webhook_secret"`
	Billing             BillingConfig `yaml:"billing"`
}

// BillingConfig tunes subscription behavior
type BillingConfig struct {
	// TrialExtensionDays is how far a one-time trial extension pushes the
	// trial end. Zero falls back to the service default.
	TrialExtensionDays int `yaml:"trial_extension_days"`
	// CheckoutSuccessPath and CheckoutCancelPath are appended to ClientURL
	// when a checkout request omits explicit return URLs.
	CheckoutSuccessPath string `yaml:"checkout_success_path"`
	CheckoutCancelPath  string `yaml:"checkout_cancel_path"`
	// InvoiceListLimit caps the invoice history page size
	InvoiceListLimit int `yaml:"invoice_list_limit"`
}

// TrialExtensionDuration converts the configured extension to a duration,
// zero when unset so the service default applies.
func (c *BillingConfig) TrialExtensionDuration() time.Duration {
	return time.Duration(c.TrialExtensionDays) * 24 * time.Hour
}

type RedisConfig struct {
	// Enabled switches billing event publication on. When false the service
	// runs with a no-op notifier.
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	// Channel is the pub/sub channel billing events are published to
	Channel string `yaml:"channel"`
}

type LogConfig struct {
	Level       string `yaml:"level"`
	Format      string `yaml:"format"`
	Output      string `yaml:"output"`
	FilePath    string `yaml:"file_path"`
	Development bool   `yaml:"development"`
}

type JWTConfig struct {
	Secret string `yaml:"secret"`
}
