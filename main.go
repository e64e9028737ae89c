package main

import (
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"hexlands/pkg/config"
	"hexlands/pkg/logger"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	log := logger.Init(cfg.Server.LogLevel, cfg.Server.Development)
	defer logger.Sync()

	log.Info("hexlands boot sequence",
		zap.String("addr", cfg.Server.Addr),
		zap.String("database", cfg.Database.Driver),
		zap.Bool("redis", cfg.Redis.Addr != ""),
		zap.Bool("worldgen", cfg.Worldgen.Enabled))

	if err := run(cfg, log); err != nil {
		log.Fatal("server exited", zap.Error(err))
	}
	log.Info("goodbye")
}
