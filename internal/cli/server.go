package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"pubgame-service/internal/app"
	"pubgame-service/internal/bus"
	"pubgame-service/internal/config"
	"pubgame-service/internal/domain"
	"pubgame-service/internal/infra/memory"
	pgloader "pubgame-service/internal/infra/postgres"
	redisinfra "pubgame-service/internal/infra/redis"
	transport "pubgame-service/internal/transport/http"
)

// NewServeCmd builds the CLI subcommand to start the game server.
func NewServeCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the game server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log := newLogger(cfg.Log.Level)

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg, log); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	gameID := cfg.Game.ID
	if gameID == "" {
		gameID = "table-1"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	var loader memory.ContentLoader = memory.NewStaticContentLoader(sampleContents())
	if pool != nil {
		loader = pgloader.NewContentLoader(pool)
	}

	contentTTL := config.TTLDuration(cfg.Game.ContentTTL, 10*time.Minute)
	var provider app.ContentProvider
	if redisClient != nil {
		provider = redisinfra.NewContentRepository(redisClient, loader, contentTTL)
	} else {
		provider = memory.NewContentRepository(loader, contentTTL)
	}

	var inner bus.Channel
	if redisClient != nil {
		inner = redisinfra.NewChannel(redisClient, log)
	} else {
		broker := memory.NewBroker()
		defer broker.Close()
		inner = broker
	}
	channel := bus.NewQueued(inner, log)
	if err := channel.SetConnected(ctx, true); err != nil {
		return err
	}

	runCtx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()

	orch := app.NewOrchestrator(gameID, channel, provider, clockwork.NewRealClock(), log, app.Hooks{})
	defer orch.Close()
	go func() {
		if err := orch.Run(runCtx); err != nil && runCtx.Err() == nil {
			log.Error().Err(err).Msg("orchestrator stopped")
		}
	}()

	wsHandler := transport.NewWSHandler(orch, channel, log)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", wsHandler.ServeWS)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info().Str("port", finalPort).Str("game_id", gameID).Msg("starting game server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info().Msg("shutting down")
	case <-ctx.Done():
		log.Info().Msg("context canceled, shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger().Level(lvl)
}

// sampleContents seeds a playable demo table when no Postgres is
// configured.
func sampleContents() map[string]domain.RoundContent {
	return map[string]domain.RoundContent{
		memory.StaticKey("general", domain.ModeQuiz, ""): {
			Type:          domain.ModeQuiz,
			Question:      "Which planet has the most moons?",
			Options:       []string{"Jupiter", "Saturn", "Neptune", "Mars"},
			CorrectAnswer: "Saturn",
		},
		memory.StaticKey("general", domain.ModeTrueFalse, ""): {
			Type:          domain.ModeTrueFalse,
			Question:      "The Great Wall of China is visible from the Moon.",
			Options:       []string{"True", "False"},
			CorrectAnswer: "False",
		},
		memory.StaticKey("general", domain.ModeChrono, ""): {
			Type:          domain.ModeChrono,
			Question:      "When did the first human walk on the Moon?",
			CorrectAnswer: "1969",
		},
		memory.StaticKey("general", domain.ModeWheelOfFortune, ""): {
			Type:   domain.ModeWheelOfFortune,
			Phrase: "BREAK A LEG",
			Hint:   "Good luck, on stage",
		},
		memory.StaticKey("general", domain.ModeRoulette, ""): {
			Type:          domain.ModeRoulette,
			Question:      "Where does the ball land?",
			Options:       []string{"Red", "Black", "Green"},
			CorrectAnswer: "Red",
		},
	}
}
