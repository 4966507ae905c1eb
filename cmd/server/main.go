package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/codingconcepts/env"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"github.com/my-favourite-streamers/federation"
	"github.com/my-favourite-streamers/federation/internal/account"
	"github.com/my-favourite-streamers/federation/internal/assertion"
	"github.com/my-favourite-streamers/federation/internal/callback"
	"github.com/my-favourite-streamers/federation/internal/rmq"
	"github.com/my-favourite-streamers/federation/internal/store"
	"github.com/my-favourite-streamers/federation/internal/subscription"
	"github.com/my-favourite-streamers/federation/internal/userauth"
)

type Config struct {
	BindAddr   string `env:"BIND_ADDR"`
	ListenPort uint16 `env:"LISTEN_PORT" default:"5004"`
	Origin     string `env:"ORIGIN" default:"http://localhost:5004"`
	AppOrigin  string `env:"APP_ORIGIN" default:"https://my-favourite-streamers.firebaseapp.com"`

	TwitchClientId     string `env:"TWITCH_CLIENT_ID" required:"true"`
	TwitchClientSecret string `env:"TWITCH_CLIENT_SECRET" required:"true"`
	OAuthRedirectUrl   string `env:"OAUTH_REDIRECT_URL" default:"https://my-favourite-streamers.firebaseapp.com/redirect"`
	OAuthScopes        string `env:"OAUTH_SCOPES" default:"user_read"`

	MongoUri    string `env:"MONGO_URI" default:"mongodb://localhost:27017"`
	MongoDbName string `env:"MONGO_DB_NAME" default:"my-favourite-streamers"`

	TokenSigningKey string `env:"TOKEN_SIGNING_KEY" required:"true"`
	TokenTtlMinutes int    `env:"TOKEN_TTL_MINUTES" default:"60"`

	RmqHost     string `env:"RMQ_HOST"`
	RmqPort     int    `env:"RMQ_PORT" default:"5672"`
	RmqVhost    string `env:"RMQ_VHOST"`
	RmqUser     string `env:"RMQ_USER"`
	RmqPassword string `env:"RMQ_PASSWORD"`
}

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", "federation").Logger()

	// Parse config from environment variables
	err := godotenv.Load()
	if err != nil && !os.IsNotExist(err) {
		logger.Fatal().Err(err).Msg("Failed to load .env file")
	}
	config := Config{}
	if err := env.Set(&config); err != nil {
		logger.Fatal().Err(err).Msg("Failed to load config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize the document store that holds accounts and event logs
	st, err := store.New(ctx, config.MongoUri, config.MongoDbName)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize store")
	}

	// Initialize an AMQP producer so accepted notifications can be fanned
	// out to downstream consumers; fanout is optional and the event log in
	// the store remains the source of truth
	var producer rmq.Producer
	if config.RmqHost != "" {
		amqpConn, err := amqp.Dial(rmq.FormatConnectionString(config.RmqHost, config.RmqPort, config.RmqVhost, config.RmqUser, config.RmqPassword))
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to connect to AMQP server")
		}
		producer, err = rmq.NewProducer(amqpConn, "stream-events")
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to initialize AMQP producer")
		}
	} else {
		logger.Warn().Msg("RMQ_HOST not set; event fanout is disabled")
	}

	minter := assertion.NewMinter(
		[]byte(config.TokenSigningKey),
		"my-favourite-streamers",
		time.Duration(config.TokenTtlMinutes)*time.Minute,
	)
	provisioner := account.NewProvisioner(st, minter)

	// Start setting up our HTTP handlers, using gorilla/mux for routing
	r := mux.NewRouter()
	r.Use(hlog.NewHandler(logger))

	// The web client calls GET /login to be redirected to the Twitch consent
	// screen, then GET /token to trade the authorization code for a signed
	// assertion once Twitch redirects back, then GET /account (presenting
	// that assertion) to load its account record
	userauthServer := userauth.NewServer(
		config.TwitchClientId,
		config.TwitchClientSecret,
		config.OAuthRedirectUrl,
		strings.Fields(config.OAuthScopes),
		provisioner,
		minter,
		st,
	)
	userauthServer.RegisterRoutes(r)

	// The hub calls GET /callback to verify the endpoint before activating a
	// subscription, and POST /callback to deliver stream notifications; the
	// web client reads them back via GET /events/{entityId}
	callbackServer := callback.NewServer(st, st, producer)
	callbackServer.RegisterRoutes(r)

	// Watch the accounts collection and re-register hub subscriptions
	// whenever a watch-list changes
	changes, err := st.WatchAccounts(ctx)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to watch accounts")
	}
	manager := subscription.NewManager(subscription.NewHubClient(
		federation.HubURL,
		config.Origin+"/callback",
		config.TwitchClientId,
	))
	go manager.Watch(ctx, changes, logger)

	// Browser requests to /login and /token carry the state cookie
	// cross-origin, so CORS must allow credentials from the app's origin
	cors := handlers.CORS(
		handlers.AllowedOrigins([]string{config.AppOrigin}),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost}),
		handlers.AllowCredentials(),
	)

	// Handle incoming HTTP connections until our top-level context is
	// canceled, at which point shut down cleanly
	addr := fmt.Sprintf("%s:%d", config.BindAddr, config.ListenPort)
	server := &http.Server{
		Addr:              addr,
		Handler:           cors(r),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("Failed to shut down cleanly")
		}
	}()

	logger.Info().Str("addr", addr).Msg("Listening")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("Server failed")
	}
}
