package app

import (
	"fmt"
	"log/slog"

	"github.com/jinzhu/gorm"
	"github.com/redis/go-redis/v9"
	"github.com/sfreiberg/gotwilio"

	"github.com/City-Bureau/intakechat/pkg/admissions"
	"github.com/City-Bureau/intakechat/pkg/bot"
	"github.com/City-Bureau/intakechat/pkg/cache"
	"github.com/City-Bureau/intakechat/pkg/config"
	"github.com/City-Bureau/intakechat/pkg/logutil"
	"github.com/City-Bureau/intakechat/pkg/store"
	"github.com/City-Bureau/intakechat/pkg/svc"
)

// App holds the long-lived dependencies shared by the Lambda handlers.
// It is built once per container and reused across invocations.
type App struct {
	Config *config.Config
	Logger *slog.Logger
	DB     *gorm.DB
	Store  store.Store
	redis  *redis.Client
}

// New loads configuration, builds the logger and connects to Postgres
func New() (*App, error) {
	cfg := config.Load()
	logger, err := logutil.NewLogger(cfg.Logging)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	db, err := store.Open(cfg.Database.DSN())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return NewWithDB(cfg, logger, db), nil
}

// NewWithDB builds an App over an existing connection
func NewWithDB(cfg *config.Config, logger *slog.Logger, db *gorm.DB) *App {
	if logger == nil {
		logger = slog.Default()
	}
	return &App{
		Config: cfg,
		Logger: logger,
		DB:     db,
		Store:  store.NewGormStore(db),
	}
}

// Engine builds the inbound message engine with the configured channel,
// retry bound and optional Redis duplicate cache
func (a *App) Engine() (*bot.Engine, error) {
	channel, err := NewChannel(a.Config)
	if err != nil {
		return nil, err
	}
	localizer, err := admissions.LoadLocalizer()
	if err != nil {
		return nil, err
	}

	engine := bot.NewEngine(a.Store, admissions.NewMachine(localizer), channel, a.Logger).
		WithMaxAttempts(a.Config.Bot.MaxAttempts)
	if seen := a.seenCache(); seen != nil {
		engine = engine.WithSeenCache(seen)
	}
	return engine, nil
}

// Agent builds the human agent sender over the configured channel
func (a *App) Agent() (*bot.Agent, error) {
	channel, err := NewChannel(a.Config)
	if err != nil {
		return nil, err
	}
	return bot.NewAgent(a.Store, bot.NewDispatcher(channel, a.Store, a.Logger)), nil
}

func (a *App) seenCache() bot.SeenCache {
	if !a.Config.Redis.Enabled {
		return nil
	}
	if a.redis == nil {
		a.redis = NewRedisClient(a.Config.Redis)
	}
	return cache.NewRedisSeenCache(a.redis, a.Config.Redis.TTL)
}

// Close releases the database and Redis connections
func (a *App) Close() error {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.Logger.Warn("closing redis", "error", err)
		}
	}
	return a.DB.Close()
}

// NewRedisClient connects to the configured Redis server
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// NewChannel returns the delivery channel selected by BOT_CHANNEL
func NewChannel(cfg *config.Config) (bot.DeliveryChannel, error) {
	if err := cfg.ValidateChannel(); err != nil {
		return nil, err
	}
	switch cfg.Bot.Channel {
	case config.ChannelTwilio:
		return NewTwilioChat(cfg.Twilio), nil
	default:
		return svc.NewWhatsAppClient(
			cfg.WhatsApp.GraphURL,
			cfg.WhatsApp.APIVersion,
			cfg.WhatsApp.PhoneID,
			cfg.WhatsApp.AccessToken,
		), nil
	}
}

// NewTwilioChat builds a TwilioChat from Twilio credentials
func NewTwilioChat(cfg config.TwilioConfig) *svc.TwilioChat {
	client := gotwilio.NewTwilioClient(cfg.AccountSID, cfg.AuthToken)
	return svc.NewTwilioChat(client, cfg.From, cfg.WhatsApp)
}
