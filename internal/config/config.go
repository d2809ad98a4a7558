package config

import (
	"fmt"
	"strings"
	"time"

	"focusmath_backend/internal/adaptive"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	JWT       JWTConfig
	Tracing   TracingConfig `mapstructure:"tracing"`
	Redis     RedisConfig
	AI        AIConfig
	CORS      CORSConfig            `mapstructure:"cors"`
	RateLimit RateLimitConfig       `mapstructure:"rate_limit"`
	Adaptive  adaptive.Params       `mapstructure:"adaptive"`
	Rewards   adaptive.RewardValues `mapstructure:"rewards"`

	// 运行时标志（非配置文件，通过命令行参数设置）
	MigrateOnly bool   `mapstructure:"-"`
	ConfigFile  string `mapstructure:"-"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type RateLimitConfig struct {
	MaxRequests   int `mapstructure:"max_requests"`
	WindowMinutes int `mapstructure:"window_minutes"`
}

type AIConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	APIKey         string `mapstructure:"api_key"`
	Model          string `mapstructure:"model"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	MaxQuestions   int    `mapstructure:"max_questions"`
}

type ServerConfig struct {
	Port string
	Mode string
}

type DatabaseConfig struct {
	// mysql | postgres | sqlite
	Driver    string
	Host      string
	Port      int
	User      string
	Password  string
	DBName    string
	Charset   string
	ParseTime bool
	SSLMode   string `mapstructure:"sslmode"`
	// sqlite 文件路径，":memory:" 为内存库
	Path     string
	LogLevel string `mapstructure:"log_level"`
}

type JWTConfig struct {
	Secret     string        `mapstructure:"secret"`
	ExpireTime time.Duration `mapstructure:"expire_hours"`
}

type TracingConfig struct {
	Enabled           bool   `mapstructure:"enabled"`
	CollectorEndpoint string `mapstructure:"collector_endpoint"`
	ServiceName       string `mapstructure:"service_name"`
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "debug")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "focusmath.db")
	v.SetDefault("database.charset", "utf8mb4")
	v.SetDefault("database.parsetime", true)
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.log_level", "warn")

	v.SetDefault("jwt.expire_hours", 72)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)

	v.SetDefault("ai.base_url", "https://api.openai.com/v1")
	v.SetDefault("ai.model", "gpt-4o-mini")
	v.SetDefault("ai.timeout_seconds", 60)
	v.SetDefault("ai.max_questions", 10)

	v.SetDefault("cors.allowed_origins", []string{"http://localhost:5173"})
	v.SetDefault("rate_limit.max_requests", 600)
	v.SetDefault("rate_limit.window_minutes", 1)

	v.SetDefault("tracing.service_name", "focusmath-backend")

	p := adaptive.DefaultParams()
	v.SetDefault("adaptive.alpha", p.Alpha)
	v.SetDefault("adaptive.promote_accuracy", p.PromoteAccuracy)
	v.SetDefault("adaptive.promote_max_response_seconds", p.PromoteMaxResponseSecs)
	v.SetDefault("adaptive.demote_accuracy", p.DemoteAccuracy)
	v.SetDefault("adaptive.demote_hints", p.DemoteHints)
	v.SetDefault("adaptive.min_difficulty", p.MinDifficulty)
	v.SetDefault("adaptive.max_difficulty", p.MaxDifficulty)
	v.SetDefault("adaptive.correct_tokens", p.CorrectTokens)
	v.SetDefault("adaptive.default_accuracy", p.DefaultAccuracy)
	v.SetDefault("adaptive.default_response_seconds", p.DefaultResponseSecs)
	v.SetDefault("adaptive.default_hints", p.DefaultHints)
	v.SetDefault("adaptive.default_difficulty", p.DefaultDifficulty)
	v.SetDefault("adaptive.max_update_retries", p.MaxUpdateRetries)

	r := adaptive.DefaultRewardValues()
	v.SetDefault("rewards.level_completion", r.LevelCompletion)
	v.SetDefault("rewards.perfect_score", r.PerfectScore)
	v.SetDefault("rewards.three_stars", r.ThreeStars)
	v.SetDefault("rewards.chapter_completion", r.ChapterCompletion)
}

// LoadConfig 从 path 目录读取 config.yaml，环境变量优先
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.SetEnvPrefix("FOCUSMATH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Database
	v.BindEnv("database.driver", "DATABASE_DRIVER")
	v.BindEnv("database.host", "DATABASE_HOST")
	v.BindEnv("database.port", "DATABASE_PORT")
	v.BindEnv("database.user", "DATABASE_USER")
	v.BindEnv("database.password", "DATABASE_PASSWORD")
	v.BindEnv("database.dbname", "DATABASE_NAME")

	// JWT
	v.BindEnv("jwt.secret", "JWT_SECRET")

	// Redis
	v.BindEnv("redis.host", "REDIS_HOST")
	v.BindEnv("redis.port", "REDIS_PORT")
	v.BindEnv("redis.password", "REDIS_PASSWORD")

	// Server
	v.BindEnv("server.mode", "SERVER_MODE")
	v.BindEnv("server.port", "PORT")

	// AI
	v.BindEnv("ai.base_url", "AI_BASE_URL")
	v.BindEnv("ai.api_key", "AI_API_KEY")
	v.BindEnv("ai.model", "AI_MODEL")

	// Tracing
	v.BindEnv("tracing.enabled", "TRACING_ENABLED")
	v.BindEnv("tracing.collector_endpoint", "TRACING_COLLECTOR_ENDPOINT")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	cfg.ConfigFile = v.ConfigFileUsed()

	cfg.JWT.ExpireTime = cfg.JWT.ExpireTime * time.Hour
	cfg.Adaptive = cfg.Adaptive.Normalize()

	if cfg.JWT.Secret == "" {
		return nil, fmt.Errorf("jwt secret is required (set JWT_SECRET)")
	}
	// 生产环境校验 JWT Secret 强度
	if cfg.Server.Mode == "release" && len(cfg.JWT.Secret) < 32 {
		return nil, fmt.Errorf("JWT secret is too short (%d chars), must be at least 32 characters in release mode", len(cfg.JWT.Secret))
	}

	return &cfg, nil
}
