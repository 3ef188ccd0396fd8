package main

import (
	"github.com/rs/zerolog/log"

	"github.com/huntlog/internal/cache"
	"github.com/huntlog/internal/config"
	"github.com/huntlog/internal/db"
	"github.com/huntlog/internal/logger"
	"github.com/huntlog/internal/router"
)

func main() {
	cfg := config.Load()
	logger.Initialize(cfg.LogLevel)

	// 初始化数据库
	if err := db.Init(cfg.DatabasePath); err != nil {
		log.Fatal().Err(err).Msg("failed to initialize database")
	}

	// 从配置引导首个账号（均为空时跳过）
	if err := db.EnsureUser(cfg.BootstrapUserName, cfg.BootstrapPassword); err != nil {
		log.Fatal().Err(err).Msg("failed to ensure bootstrap user")
	}

	c, err := cache.New(cfg.Cache)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize cache")
	}
	defer c.Close()

	// 设置并运行 Gin 服务器
	r := router.Setup(cfg, c)
	log.Info().Str("addr", cfg.ListenAddr).Msg("starting server")
	if err := r.Run(cfg.ListenAddr); err != nil {
		log.Fatal().Err(err).Msg("failed to run server")
	}
}
