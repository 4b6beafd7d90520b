// Package api implements app.Runner for the API server process.
package api

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	apphttp "github.com/inkforge-labs/inkforge/pkg/app/http"
	"github.com/inkforge-labs/inkforge/pkg/assistant"
	"github.com/inkforge-labs/inkforge/pkg/config"
	draftservice "github.com/inkforge-labs/inkforge/pkg/draft/service"
	"github.com/inkforge-labs/inkforge/pkg/draftstore"
	"github.com/inkforge-labs/inkforge/pkg/ledger"
	"github.com/inkforge-labs/inkforge/pkg/store"
	"github.com/inkforge-labs/inkforge/pkg/store/memstore"
	"github.com/inkforge-labs/inkforge/pkg/store/sqlstore"
	storyservice "github.com/inkforge-labs/inkforge/pkg/story/service"
	"github.com/inkforge-labs/inkforge/pkg/storystore"
	userservice "github.com/inkforge-labs/inkforge/pkg/user/service"
	"github.com/inkforge-labs/inkforge/pkg/userstore"
)

// Server holds cfg to init the api server.
type Server struct {
	cfg *config.Config
}

// NewServer initializes new api server.
func NewServer(cfg *config.Config) *Server {
	return &Server{cfg: cfg}
}

func (s *Server) Run() error {
	if s.cfg == nil {
		return fmt.Errorf("api server config is nil")
	}
	cfg := s.cfg

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := config.NewLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("setup logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting API server",
		zap.String("host", cfg.Server.Host),
		zap.Int("port", cfg.Server.Port),
		zap.String("storage", cfg.Storage.Backend),
	)

	backend, err := s.openBackend(logger)
	if err != nil {
		return err
	}
	defer func() { _ = backend.Close() }()

	clock := func() time.Time { return time.Now() }

	drafts, err := draftstore.New(backend, clock)
	if err != nil {
		return fmt.Errorf("init draft store: %w", err)
	}
	stories, err := storystore.New(backend, clock)
	if err != nil {
		return fmt.Errorf("init story store: %w", err)
	}
	users, err := userstore.New(backend, clock)
	if err != nil {
		return fmt.Errorf("init user store: %w", err)
	}
	ldg, err := ledger.New(backend, clock, cfg.IsOperator, logger)
	if err != nil {
		return fmt.Errorf("init ledger: %w", err)
	}

	if err := s.bootstrapToken(ldg, logger); err != nil {
		return err
	}

	welcomeReward, err := parseAmount(cfg.Rewards.WelcomeAmount, "rewards.welcome_amount")
	if err != nil {
		return err
	}
	stakeThreshold, err := parseAmount(cfg.Assistant.StakeThreshold, "assistant.stake_threshold")
	if err != nil {
		return err
	}

	draftSvc := draftservice.NewDraftService(
		drafts, stories, ldg, assistant.Unavailable{}, stakeThreshold, logger)
	storySvc := storyservice.NewStoryService(stories, ldg, logger)
	userSvc := userservice.NewUserService(users, ldg, welcomeReward, logger)

	router := s.setupRouter(newHandler(draftSvc, storySvc, userSvc, ldg, logger))

	return apphttp.ServeAndWait(ctx, router, logger, &cfg.Server)
}

func (s *Server) openBackend(logger *zap.Logger) (store.Backend, error) {
	switch s.cfg.Storage.Backend {
	case "sqlite":
		backend, err := sqlstore.Open(s.cfg.Storage.Path)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		logger.Info("Opened sqlite store", zap.String("path", s.cfg.Storage.Path))
		return backend, nil
	default:
		logger.Info("Using in-memory store; data will not survive restarts")
		return memstore.New(), nil
	}
}

// bootstrapToken creates the token at startup when it does not exist yet,
// using the first configured operator as the minting account.
func (s *Server) bootstrapToken(ldg *ledger.Ledger, logger *zap.Logger) error {
	created, err := ldg.TokenCreated()
	if err != nil {
		return fmt.Errorf("check token: %w", err)
	}
	if created || len(s.cfg.Operators) == 0 {
		return nil
	}

	initialSupply, err := parseAmount(s.cfg.Token.InitialSupply, "token.initial_supply")
	if err != nil {
		return err
	}
	args := ledger.CreateTokenArgs{
		TokenName:     s.cfg.Token.Name,
		TokenSymbol:   s.cfg.Token.Symbol,
		TokenLogo:     s.cfg.Token.Logo,
		InitialSupply: initialSupply,
		Decimals:      s.cfg.Token.Decimals,
	}
	if s.cfg.Token.TransferFee != "" {
		fee, err := parseAmount(s.cfg.Token.TransferFee, "token.transfer_fee")
		if err != nil {
			return err
		}
		args.TransferFee = &fee
	}
	if err := ldg.CreateToken(s.cfg.Operators[0], args); err != nil {
		return fmt.Errorf("bootstrap token: %w", err)
	}
	logger.Info("Bootstrapped token",
		zap.String("symbol", s.cfg.Token.Symbol),
		zap.String("minting_account", s.cfg.Operators[0]))
	return nil
}

func (s *Server) setupRouter(h *handler) chi.Router {
	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(s.cfg.Server.RequestTimeout))
	r.Use(apphttp.Metrics)

	// Health check
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	h.registerRoutes(r)
	return r
}

func parseAmount(value, key string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid %s: %w", key, err)
	}
	return amount, nil
}
