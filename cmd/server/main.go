package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/nicksaban20/Fibbage/distractor"
	"github.com/nicksaban20/Fibbage/game"
	"github.com/nicksaban20/Fibbage/trivia"
	"github.com/nicksaban20/Fibbage/validate"
)

type config struct {
	bind           string
	port           int
	allowedOrigins []string
	publicURL      string
	anthropicKey   string
	anthropicModel string
	opentdbURL     string
	verbose        bool
}

func (c *config) validate() error {
	if c.port < 1 || c.port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.port)
	}
	if len(c.allowedOrigins) == 0 {
		return fmt.Errorf("at least one allowed origin is required")
	}
	return nil
}

func newCmd(cfg *config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("FIBBAGE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "fibbage-server",
		Short:         "Bluff trivia game server: rooms, phases, lies and votes.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := cfg.validate(); err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}

	fs := cmd.Flags()
	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVarP(&cfg.bind, "bind", "b", "0.0.0.0", "address to bind to (env: FIBBAGE_BIND)")
	fs.IntVarP(&cfg.port, "port", "p", 5000, "port to listen on (env: FIBBAGE_PORT)")
	fs.StringSliceVar(&cfg.allowedOrigins, "allowed-origins", []string{"http://localhost:3000"}, "origins allowed to connect (env: FIBBAGE_ALLOWED_ORIGINS)")
	fs.StringVar(&cfg.publicURL, "public-url", "http://localhost:3000", "public URL encoded into join QR codes (env: FIBBAGE_PUBLIC_URL)")
	fs.StringVar(&cfg.anthropicKey, "anthropic-key", "", "Anthropic API key; empty disables AI generation (env: FIBBAGE_ANTHROPIC_KEY)")
	fs.StringVar(&cfg.anthropicModel, "anthropic-model", distractor.DefaultModel, "model used for distractor generation (env: FIBBAGE_ANTHROPIC_MODEL)")
	fs.StringVar(&cfg.opentdbURL, "opentdb-url", trivia.DefaultBaseURL, "Open Trivia DB endpoint (env: FIBBAGE_OPENTDB_URL)")
	fs.BoolVarP(&cfg.verbose, "verbose", "v", false, "log at debug level (env: FIBBAGE_VERBOSE)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})

	return cmd
}

func newServer(allowedOrigins []string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", func(ctx *gin.Context) { ctx.String(http.StatusOK, "healthy") })

	r.Use(func(ctx *gin.Context) {
		origin := ctx.Request.Header.Get("Origin")
		if origin == "" || slices.Contains(allowedOrigins, origin) {
			ctx.Next()
			return
		}
		ctx.String(http.StatusForbidden, "forbidden origin")
		ctx.Abort()
	})

	r.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowCredentials: true,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{
			"Content-Type",
			"Upgrade",
			"Connection",
			"Sec-WebSocket-Key",
			"Sec-WebSocket-Version",
			"Sec-WebSocket-Extensions",
			"Sec-WebSocket-Protocol",
		},
	}))

	return r
}

func run(ctx context.Context, cfg *config) error {
	log := zerolog.New(zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
	}).With().Timestamp().Logger()
	if cfg.verbose {
		log = log.Level(zerolog.DebugLevel)
	} else {
		log = log.Level(zerolog.InfoLevel)
	}

	questions := trivia.NewSource(cfg.opentdbURL, log)
	distractors := distractor.NewClient("", cfg.anthropicKey, cfg.anthropicModel, log)
	validator := validate.NewValidator(0)
	if cfg.anthropicKey == "" {
		log.Warn().Msg("no anthropic key set, AI distractors will use stock fallbacks")
	}

	tickerGen := game.NewTickerGen()
	lobby := game.NewLobby(game.NewCodeGen(), &tickerGen, questions, distractors, validator, log)
	lobbyStarted := make(chan struct{})
	go lobby.LobbyActor(lobbyStarted)
	<-lobbyStarted

	gameHandler := game.NewGameHandler(lobby, cfg.publicURL, log)

	r := newServer(cfg.allowedOrigins)
	{
		rooms := r.Group("/rooms")
		rooms.GET("/create", gameHandler.CreateRoomHandler)
		rooms.GET("/:code/join", gameHandler.JoinRoomHandler)
		rooms.GET("/:code/qr", gameHandler.RoomQRHandler)
	}

	addr := fmt.Sprintf("%s:%d", cfg.bind, cfg.port)
	log.Info().Str("addr", addr).Msg("server listening")

	srv := &http.Server{Addr: addr, Handler: r}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func main() {
	// .env is optional; real deployments use environment variables.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := &config{}
	if err := newCmd(cfg).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
