// Package app assembles the People Partner service from configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/redis/go-redis/v9"

	"people-partner/internal/api"
	"people-partner/internal/config"
	"people-partner/internal/integrations/anthropic"
	"people-partner/internal/integrations/paramstore"
	"people-partner/internal/repository"
	"people-partner/internal/usecase"
	"people-partner/web"
)

// Parameter Store values are re-read at most this often.
const paramCacheTTL = 15 * time.Minute

// App holds the wired components of one running instance.
type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	store   repository.Store
	service *usecase.ChatService
	router  http.Handler
}

type options struct {
	awsConfig  *aws.Config
	httpClient *http.Client
	store      repository.Store
}

type Option func(*options)

// WithAWSConfig skips loading the default AWS configuration.
func WithAWSConfig(cfg aws.Config) Option {
	return func(o *options) {
		o.awsConfig = &cfg
	}
}

// WithHTTPClient sets the client used for provider calls.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) {
		o.httpClient = c
	}
}

// WithStore uses the given session store instead of building one from cfg.
func WithStore(s repository.Store) Option {
	return func(o *options) {
		o.store = s
	}
}

func New(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts ...Option) (*App, error) {
	if cfg == nil {
		return nil, errors.New("app: config must not be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	if o.awsConfig == nil && cfg.NeedsAWS() {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("app: load AWS config: %w", err)
		}
		o.awsConfig = &awsCfg
	}

	store := o.store
	if store == nil {
		var err error
		store, err = newStore(ctx, cfg, o.awsConfig)
		if err != nil {
			return nil, err
		}
	}

	provider, err := newProvider(cfg, o)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	service, err := usecase.NewChatService(provider, store, logger, usecase.Options{
		Model:            cfg.Anthropic.Model,
		MaxOutputTokens:  cfg.Chat.MaxOutputTokens,
		HistoryWindow:    cfg.Chat.HistoryWindow,
		MaxMessageLength: cfg.Chat.MaxMessageLength,
		ProviderTimeout:  cfg.Chat.ProviderTimeout,
	})
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("app: create chat service: %w", err)
	}

	demo, err := web.DemoHandler(api.ServiceName, cfg.Version)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("app: render demo page: %w", err)
	}

	handler, err := api.NewHandler(service, logger, api.Options{
		Version:       cfg.Version,
		ErrorFallback: cfg.ErrorFallback(),
		Demo:          demo,
	})
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("app: create api handler: %w", err)
	}

	return &App{
		cfg:     cfg,
		logger:  logger,
		store:   store,
		service: service,
		router:  api.NewRouter(handler, cfg.AllowedOrigins),
	}, nil
}

func newStore(ctx context.Context, cfg *config.Config, awsCfg *aws.Config) (repository.Store, error) {
	driver := repository.Driver(cfg.Session.Store)
	var storeOpts []repository.StoreOption

	switch driver {
	case repository.DriverSQLite:
		storeOpts = append(storeOpts, repository.WithSQLitePath(cfg.Session.SQLitePath))

	case repository.DriverRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Session.RedisAddr,
			Password: cfg.Session.RedisPassword,
			DB:       cfg.Session.RedisDB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := client.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("app: connect to redis: %w", err)
		}
		storeOpts = append(storeOpts, repository.WithRedisClient(client), repository.WithTTL(cfg.Session.TTL))

	case repository.DriverDynamoDB:
		if awsCfg == nil {
			return nil, errors.New("app: dynamodb session store requires AWS configuration")
		}
		storeOpts = append(storeOpts,
			repository.WithDynamoDB(awsdynamodb.NewFromConfig(*awsCfg), cfg.Session.DynamoDBTable),
			repository.WithTTL(cfg.Session.TTL),
		)
	}

	store, err := repository.NewStore(driver, storeOpts...)
	if err != nil {
		return nil, fmt.Errorf("app: create %s session store: %w", driver, err)
	}
	return store, nil
}

func newProvider(cfg *config.Config, o *options) (*anthropic.Client, error) {
	var clientOpts []anthropic.Option
	if cfg.Anthropic.BaseURL != "" {
		clientOpts = append(clientOpts, anthropic.WithBaseURL(cfg.Anthropic.BaseURL))
	}
	if o.httpClient != nil {
		clientOpts = append(clientOpts, anthropic.WithHTTPClient(o.httpClient))
	}

	if cfg.Anthropic.APIKey != "" {
		clientOpts = append(clientOpts, anthropic.WithAPIKey(cfg.Anthropic.APIKey))
	} else {
		if o.awsConfig == nil {
			return nil, errors.New("app: key parameter lookup requires AWS configuration")
		}
		params, err := paramstore.NewFromConfig(*o.awsConfig, paramstore.WithCacheTTL(paramCacheTTL))
		if err != nil {
			return nil, fmt.Errorf("app: create parameter store client: %w", err)
		}
		clientOpts = append(clientOpts, anthropic.WithKeyParameter(params, cfg.Anthropic.APIKeyParam))
	}

	client, err := anthropic.NewClient(clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("app: create anthropic client: %w", err)
	}
	return client, nil
}

// Router returns the HTTP handler serving every endpoint.
func (a *App) Router() http.Handler {
	return a.router
}

func (a *App) Service() *usecase.ChatService {
	return a.service
}

// StartPruner launches the idle-session pruner when SESSION_TTL is set. It
// returns nil when pruning is disabled.
func (a *App) StartPruner(ctx context.Context) <-chan struct{} {
	if a.cfg.Session.TTL <= 0 {
		return nil
	}
	return repository.StartPruner(ctx, a.store, a.cfg.Session.TTL, a.cfg.Session.PruneInterval, a.logger)
}

func (a *App) Close() error {
	return a.store.Close()
}
