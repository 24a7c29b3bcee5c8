package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Delivery channels a deployment can reply through
const (
	ChannelWhatsApp = "whatsapp"
	ChannelTwilio   = "twilio"
)

// Config holds every setting the Lambda handlers read
type Config struct {
	Database DatabaseConfig
	Twilio   TwilioConfig
	WhatsApp WhatsAppConfig
	SNS      SNSConfig
	Redis    RedisConfig
	Bot      BotConfig
	Logging  LoggingConfig
}

// DatabaseConfig locates the Postgres database
type DatabaseConfig struct {
	URL      string
	Host     string
	Port     string
	User     string
	Password string
	Name     string
}

// DSN returns DATABASE_URL when set, otherwise a libpq connection string
// built from the RDS_* settings
func (d DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	return fmt.Sprintf(
		"host=%s port=%s user=%s dbname=%s password=%s",
		d.Host,
		d.Port,
		d.User,
		d.Name,
		d.Password,
	)
}

// TwilioConfig holds Twilio credentials and the sending number. WhatsApp
// is set when the number carries the whatsapp: prefix.
type TwilioConfig struct {
	AccountSID string
	AuthToken  string
	From       string
	WhatsApp   bool
}

// WhatsAppConfig holds the Cloud API webhook secrets and sender settings
type WhatsAppConfig struct {
	VerifyToken string
	AppSecret   string
	AccessToken string
	PhoneID     string
	APIVersion  string
	GraphURL    string
}

// SNSConfig names the topic the webhook handlers publish to
type SNSConfig struct {
	TopicARN string
	// GatewayEndpoint is the public base URL used to check webhook signatures
	GatewayEndpoint string
}

// RedisConfig configures the optional seen-message cache
type RedisConfig struct {
	Enabled  bool
	Address  string
	Password string
	DB       int
	TTL      time.Duration
}

// BotConfig selects the delivery channel and bounds retries and idleness
type BotConfig struct {
	Channel     string
	MaxAttempts int
	InactiveFor time.Duration
}

// LoggingConfig selects the slog level and handler format
type LoggingConfig struct {
	Level     string
	Format    string
	AddSource bool
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("rds_port", "5432")
	v.SetDefault("whatsapp_api_version", "v24.0")
	v.SetDefault("whatsapp_graph_url", "https://graph.facebook.com")
	v.SetDefault("redis_db", 0)
	v.SetDefault("redis_ttl_seconds", 86400)
	v.SetDefault("bot_channel", ChannelWhatsApp)
	v.SetDefault("bot_max_attempts", 3)
	v.SetDefault("inactive_after_hours", 24*7)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")
}

// Load reads configuration from the environment, after loading a .env
// file when one is present. Callers validate the sections they use.
func Load() *Config {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return fromViper(v)
}

func fromViper(v *viper.Viper) *Config {
	cfg := &Config{
		Database: DatabaseConfig{
			URL:      v.GetString("database_url"),
			Host:     v.GetString("rds_host"),
			Port:     v.GetString("rds_port"),
			User:     v.GetString("rds_username"),
			Password: v.GetString("rds_password"),
			Name:     v.GetString("rds_db_name"),
		},
		Twilio: TwilioConfig{
			AccountSID: v.GetString("twilio_account_sid"),
			AuthToken:  v.GetString("twilio_auth_token"),
			From:       v.GetString("twilio_from"),
			WhatsApp:   strings.HasPrefix(v.GetString("twilio_from"), "whatsapp:"),
		},
		WhatsApp: WhatsAppConfig{
			VerifyToken: v.GetString("whatsapp_verify_token"),
			AppSecret:   v.GetString("whatsapp_app_secret"),
			AccessToken: v.GetString("whatsapp_access_token"),
			PhoneID:     v.GetString("whatsapp_phone_id"),
			APIVersion:  v.GetString("whatsapp_api_version"),
			GraphURL:    v.GetString("whatsapp_graph_url"),
		},
		SNS: SNSConfig{
			TopicARN:        v.GetString("sns_topic_arn"),
			GatewayEndpoint: v.GetString("gw_endpoint"),
		},
		Redis: loadRedisConfig(v),
		Bot: BotConfig{
			Channel:     strings.ToLower(v.GetString("bot_channel")),
			MaxAttempts: v.GetInt("bot_max_attempts"),
			InactiveFor: time.Duration(v.GetInt("inactive_after_hours")) * time.Hour,
		},
		Logging: LoggingConfig{
			Level:     v.GetString("log_level"),
			Format:    v.GetString("log_format"),
			AddSource: v.GetBool("log_add_source"),
		},
	}
	return cfg
}

func loadRedisConfig(v *viper.Viper) RedisConfig {
	addr := v.GetString("redis_addr")
	if addr == "" {
		return RedisConfig{Enabled: false}
	}

	return RedisConfig{
		Enabled:  true,
		Address:  addr,
		Password: v.GetString("redis_password"),
		DB:       v.GetInt("redis_db"),
		TTL:      time.Duration(v.GetInt("redis_ttl_seconds")) * time.Second,
	}
}

// Validate checks the settings needed by entry points that touch the database
func (c *Config) Validate() error {
	if c.Database.URL == "" && c.Database.Host == "" {
		return errors.New("missing DATABASE_URL or RDS_HOST")
	}
	if c.Bot.MaxAttempts <= 0 {
		return errors.New("BOT_MAX_ATTEMPTS must be > 0")
	}
	if c.Bot.InactiveFor <= 0 {
		return errors.New("INACTIVE_AFTER_HOURS must be > 0")
	}
	if c.Bot.Channel != ChannelWhatsApp && c.Bot.Channel != ChannelTwilio {
		return fmt.Errorf("unknown BOT_CHANNEL %q", c.Bot.Channel)
	}
	return nil
}

// ValidateChannel checks the credentials of the configured delivery channel.
// Only entry points that send replies need them.
func (c *Config) ValidateChannel() error {
	switch c.Bot.Channel {
	case ChannelWhatsApp:
		if c.WhatsApp.AccessToken == "" || c.WhatsApp.PhoneID == "" {
			return errors.New("whatsapp channel requires WHATSAPP_ACCESS_TOKEN and WHATSAPP_PHONE_ID")
		}
	case ChannelTwilio:
		if c.Twilio.AccountSID == "" || c.Twilio.AuthToken == "" || c.Twilio.From == "" {
			return errors.New("twilio channel requires TWILIO_ACCOUNT_SID, TWILIO_AUTH_TOKEN and TWILIO_FROM")
		}
	default:
		return fmt.Errorf("unknown BOT_CHANNEL %q", c.Bot.Channel)
	}
	return nil
}
