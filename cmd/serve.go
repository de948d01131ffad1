package main

import (
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/fasaldhan/fasaldhan-cli/internal/estimator"
	"github.com/fasaldhan/fasaldhan-cli/internal/market"
	"github.com/fasaldhan/fasaldhan-cli/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the marketplace API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return err
		}

		api := &apiServer{
			store:    st,
			engine:   initEngine(st),
			analyzer: market.NewAnalyzer(st, cfg.Market.TrendingLimit, cfg.Market.RecentWindowDays),
		}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:         fmt.Sprintf(":%d", port),
			Handler:      api.router(cfg.Server.RateLimit),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			srv.Shutdown(ctx) //nolint:errcheck
		}()

		zap.L().Info("starting server",
			zap.Int("port", port),
			zap.Bool("engine_enabled", cfg.Engine.Enabled),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

// apiServer bundles the dependencies the HTTP handlers need.
type apiServer struct {
	store    store.Store
	engine   estimator.Engine
	analyzer *market.Analyzer
}

func (a *apiServer) router(rps int) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(rateLimit(rps))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", a.handleHealth)

	r.Route("/api", func(r chi.Router) {
		// Estimation engine
		r.Post("/ml/predict-price", a.handlePredictPrice)
		r.Post("/ml/assess-quality", a.handleAssessQuality)
		r.Post("/ml/predict-yield", a.handlePredictYield)

		// Crops and prices
		r.Get("/crops", a.handleListCrops)
		r.Post("/crops", a.handleCreateCrop)
		r.Get("/crops/{cropID}", a.handleGetCrop)
		r.Get("/crops/{cropID}/price-history", a.handlePriceHistory)
		r.Get("/crops/{cropID}/market-analysis", a.handleMarketAnalysis)
		r.Post("/market-prices", a.handleAddMarketPrice)

		// Listings
		r.Get("/listings", a.handleListListings)
		r.Post("/listings", a.handleCreateListing)
		r.Get("/listings/{listingID}", a.handleGetListing)
		r.Patch("/listings/{listingID}/status", a.handleUpdateListingStatus)
		r.Post("/listings/{listingID}/insights", a.handleListingInsights)

		// Contracts
		r.Get("/contracts", a.handleListContracts)
		r.Post("/contracts", a.handleCreateContract)
		r.Get("/contracts/{contractID}", a.handleGetContract)
		r.Get("/contracts/{contractID}/risk-analysis", a.handleRiskAnalysis)
		r.Get("/contracts/{contractID}/progress", a.handleListProgress)
		r.Post("/contracts/{contractID}/progress", a.handleAddProgress)
		r.Post("/contracts/{contractID}/complete", a.handleCompleteContract)

		// Reviews
		r.Get("/reviews", a.handleListReviews)
		r.Post("/reviews", a.handleCreateReview)

		// Aggregates
		r.Get("/market-trends", a.handleMarketTrends)
		r.Get("/dashboard/farmer/{farmerID}", a.handleFarmerDashboard)
		r.Get("/dashboard/buyer/{buyerID}", a.handleBuyerDashboard)
	})

	return r
}

// rateLimit applies a process-wide token-bucket limit.
func rateLimit(rps int) func(http.Handler) http.Handler {
	if rps <= 0 {
		rps = 20
	}
	lim := rate.NewLimiter(rate.Limit(rps), rps*2)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !lim.Allow() {
				writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
