package main

import (
	"flag"
	"os"

	"github.com/charmbracelet/log"
	"github.com/subosito/gotenv"

	"github.com/rfigueroa/bankfeed/pkg/config"
	"github.com/rfigueroa/bankfeed/pkg/mapping"
	"github.com/rfigueroa/bankfeed/pkg/server"
	"github.com/rfigueroa/bankfeed/pkg/store"
)

func main() {
	_ = gotenv.Load()

	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportCaller:    true,
		ReportTimestamp: true,
		Prefix:          "bankfeed",
	})

	var cfgFile string
	flag.StringVar(&cfgFile, "c", "", "Config file (default is config.yaml)")
	flag.Parse()

	cfg, err := config.Build(cfgFile, nil)
	if err != nil {
		logger.Fatal("failed to load config", "err", err)
	}

	st, err := store.OpenBolt(cfg.DatabasePath())
	if err != nil {
		logger.Fatal("failed to open store", "err", err)
	}
	defer st.Close()

	registry := mapping.NewRegistry(logger)
	count, err := mapping.LoadFile(cfg.InstitutionsFile, registry)
	if err != nil {
		logger.Fatal("failed to load institutions", "file", cfg.InstitutionsFile, "err", err)
	}
	logger.Info("loaded institutions", "file", cfg.InstitutionsFile, "count", count)

	srv := server.New(cfg, st, registry, logger)
	logger.Info("starting server", "addr", cfg.Listen)
	if err := srv.Start(cfg.Listen); err != nil {
		logger.Fatal("server error", "err", err)
	}
}
