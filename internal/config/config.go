package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// CacheConfig 描述进程内缓存的容量与过期策略。
type CacheConfig struct {
	Enabled     bool
	MaxSizeMB   int
	TTLSeconds  int
	CounterSize int
}

// AppConfig 汇总运行服务所需的基础配置。
type AppConfig struct {
	ListenAddr        string
	Port              string
	DatabasePath      string
	SessionSecret     string
	GinMode           string
	LogLevel          string
	BootstrapUserName string
	BootstrapPassword string
	Cache             CacheConfig
}

// Load 读取应用配置。优先级：环境变量 > config.yaml > 默认值。
// 配置文件缺失不视为错误，所有键都有安全默认值。
func Load() AppConfig {
	v := viper.New()

	v.SetDefault("port", "8080")
	v.SetDefault("listen_addr", "")
	v.SetDefault("database_path", "huntlog.db")
	v.SetDefault("session_secret", "huntlog-dev-secret")
	v.SetDefault("gin_mode", "release")
	v.SetDefault("log_level", "info")
	v.SetDefault("bootstrap_user_name", "")
	v.SetDefault("bootstrap_password", "")
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.max_size_mb", 64)
	v.SetDefault("cache.ttl_seconds", 60)
	v.SetDefault("cache.counter_size", 100000)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("huntlog")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 配置文件可选，读不到时继续使用默认值与环境变量
	_ = v.ReadInConfig()

	listenAddr := strings.TrimSpace(v.GetString("listen_addr"))
	port := strings.TrimSpace(v.GetString("port"))
	if listenAddr == "" {
		listenAddr = fmt.Sprintf(":%s", port)
	}

	return AppConfig{
		ListenAddr:        listenAddr,
		Port:              port,
		DatabasePath:      strings.TrimSpace(v.GetString("database_path")),
		SessionSecret:     strings.TrimSpace(v.GetString("session_secret")),
		GinMode:           strings.TrimSpace(v.GetString("gin_mode")),
		LogLevel:          strings.TrimSpace(v.GetString("log_level")),
		BootstrapUserName: strings.TrimSpace(v.GetString("bootstrap_user_name")),
		BootstrapPassword: strings.TrimSpace(v.GetString("bootstrap_password")),
		Cache: CacheConfig{
			Enabled:     v.GetBool("cache.enabled"),
			MaxSizeMB:   v.GetInt("cache.max_size_mb"),
			TTLSeconds:  v.GetInt("cache.ttl_seconds"),
			CounterSize: v.GetInt("cache.counter_size"),
		},
	}
}
