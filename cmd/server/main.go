package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "lintang/knooppuntx/docs"
	"lintang/knooppuntx/pkg/config"
	"lintang/knooppuntx/pkg/contractor"
	"lintang/knooppuntx/pkg/engine/loopsearch"
	"lintang/knooppuntx/pkg/engine/routingalgorithm"
	"lintang/knooppuntx/pkg/geocoding"
	"lintang/knooppuntx/pkg/graphmanager"
	"lintang/knooppuntx/pkg/kv"
	"lintang/knooppuntx/pkg/logger"
	"lintang/knooppuntx/pkg/server/rest"
	"lintang/knooppuntx/pkg/server/rest/service"
	"lintang/knooppuntx/pkg/weather"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.uber.org/zap"
)

//	@title			knooppuntx API
//	@version		1.0
//	@description	wind-optimized circular cycling routes over the cycling junction network

// @host		localhost:5000
// @BasePath	/api
// @schemes	http
func main() {
	cfg, err := config.Load(flag.CommandLine, os.Args[1:])
	if err != nil {
		log.Fatal(err)
	}
	lg, err := logger.New(cfg.AppEnv)
	if err != nil {
		log.Fatal(err)
	}
	defer lg.Sync()

	condenser := contractor.NewCondenser(lg, contractor.WithCutoff(cfg.CondenseCutoffM), contractor.WithWorkers(cfg.Workers))
	graphs, err := graphmanager.Open(cfg.DataDir, cfg.MaxDBConns, condenser, lg)
	if err != nil {
		lg.Fatal("failed to open routing data", zap.String("data_dir", cfg.DataDir), zap.Error(err))
	}
	defer graphs.Close()

	cache, err := kv.Open(cfg.CacheDir)
	if err != nil {
		lg.Fatal("failed to open cache", zap.String("cache_dir", cfg.CacheDir), zap.Error(err))
	}
	defer cache.Close()

	geoCfg := geocoding.DefaultConfig()
	geoCfg.BaseURL = cfg.NominatimURL
	geoCfg.CountryCodes = cfg.CountryCodes
	geoCfg.UserAgent = cfg.NominatimUserAgent
	geocoder := geocoding.NewCachedGeocoder(geocoding.NewNominatimGeocoder(geoCfg, lg), cache, geocoding.DefaultCacheTTL, lg)

	windCfg := weather.DefaultConfig()
	windCfg.BaseURL = cfg.OpenMeteoURL
	wind := weather.NewCachedProvider(weather.NewOpenMeteo(windCfg, lg), cache, lg)

	reg := prometheus.NewRegistry()
	m := rest.NewMetrics(reg)

	r := chi.NewRouter()
	if !cfg.IsProduction() {
		r.Use(middleware.Logger)
	}
	r.Use(middleware.Recoverer)
	r.Use(rest.PromeHttpMiddleware(m)) // prometheus http middleware
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	loopSvc := service.NewLoopService(graphs, graphs.Store(), geocoder, wind,
		loopsearch.NewLoopSearch(lg), routingalgorithm.NewRouteAlgorithm(), m,
		service.Config{TimeBudget: cfg.SearchTimeBudget}, lg)
	rest.LoopRouter(r, loopSvc, graphs, m, lg)

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		lg.Info("server started", zap.String("addr", cfg.ListenAddr), zap.Bool("prebuilt_graph", graphs.Loaded()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			lg.Fatal("server stopped", zap.Error(err))
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		lg.Error("graceful shutdown failed", zap.Error(err))
	}
	lg.Info("server shut down")
}
