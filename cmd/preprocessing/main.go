package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"lintang/knooppuntx/pkg/config"
	"lintang/knooppuntx/pkg/contractor"
	"lintang/knooppuntx/pkg/graphmanager"
	"lintang/knooppuntx/pkg/logger"
	"lintang/knooppuntx/pkg/osmparser"
	"lintang/knooppuntx/pkg/repair"

	"go.uber.org/zap"
)

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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	f, err := os.Open(cfg.OSMFile)
	if err != nil {
		lg.Fatal("failed to open osm file", zap.String("path", cfg.OSMFile), zap.Error(err))
	}
	defer f.Close()

	parsed, err := osmparser.NewOsmParser(lg, true).Parse(ctx, f)
	if err != nil {
		lg.Fatal("failed to parse osm file", zap.Error(err))
	}

	healer := repair.NewHealer(lg, repair.WithGapThreshold(cfg.GapThresholdM))
	condenser := contractor.NewCondenser(lg,
		contractor.WithCutoff(cfg.CondenseCutoffM),
		contractor.WithWorkers(cfg.Workers),
		contractor.WithProgress(true))

	if _, err := graphmanager.Build(ctx, cfg.DataDir, parsed.Network, parsed.Relations, healer, condenser, lg); err != nil {
		lg.Fatal("preprocessing failed", zap.Error(err))
	}
}
