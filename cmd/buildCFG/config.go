package buildCFG

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/wb-go/wbf/config"
	"github.com/wb-go/wbf/dbpg"
)

type ServerConfig struct {
	Port         string
	Mode         string
	AllowOrigins []string
}

func (s ServerConfig) Debug() bool { return s.Mode == "development" }

// GinMode maps the configured mode onto a gin mode name.
func (s ServerConfig) GinMode() string {
	switch s.Mode {
	case "development", "debug":
		return "debug"
	case "test":
		return "test"
	}
	return "release"
}

type StorageConfig struct {
	Driver  string
	Timeout time.Duration
}

type MigrationConfig struct {
	Dir            string
	DropOnShutdown bool
}

type AuthConfig struct {
	JWTSecret       string
	ManagerTokenTTL time.Duration
	StudentTokenTTL time.Duration
	BcryptCost      int
}

type MailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type NotifierConfig struct {
	Workers int
	Buffer  int
	Timeout time.Duration
}

type RabbitConfig struct {
	Enabled  bool
	Url      string
	Exchange string
	Queue    string
}

func splitList(raw string) []string {
	var out []string
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// envOr prefers a non-empty environment variable over the file value.
func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func durationOr(cfg *config.Config, key string, fallback time.Duration) time.Duration {
	if d := cfg.GetDuration(key); d > 0 {
		return d
	}
	return fallback
}

func intOr(cfg *config.Config, key string, fallback int) int {
	if n := cfg.GetInt(key); n > 0 {
		return n
	}
	return fallback
}

func BuildServerConfig(cfg *config.Config, log *zerolog.Logger) ServerConfig {
	port := envOr("PORT", cfg.GetString("server.port"))
	if port == "" {
		log.Warn().Msg("server.port is not set, using 8080")
		port = "8080"
	}
	origins := splitList(envOr("HACKHUB_ALLOW_ORIGINS", cfg.GetString("server.allow_origins")))
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return ServerConfig{
		Port:         port,
		Mode:         envOr("HACKHUB_MODE", cfg.GetString("server.mode")),
		AllowOrigins: origins,
	}
}

func BuildStorageConfig(cfg *config.Config, log *zerolog.Logger) (StorageConfig, error) {
	driver := strings.ToLower(envOr("HACKHUB_STORAGE", cfg.GetString("storage.driver")))
	if driver == "" {
		driver = "postgres"
	}
	if driver != "postgres" && driver != "memory" {
		return StorageConfig{}, fmt.Errorf("storage.driver %q is not one of postgres, memory", driver)
	}
	if driver == "memory" {
		log.Warn().Msg("using in-memory storage, data is lost on restart")
	}
	return StorageConfig{Driver: driver, Timeout: durationOr(cfg, "storage.timeout", 5*time.Second)}, nil
}

func BuildDBConfig(cfg *config.Config, log *zerolog.Logger) (string, []string, *dbpg.Options, error) {
	master := envOr("DATABASE_URL", cfg.GetString("database.master_dsn"))
	if master == "" {
		return "", nil, nil, errors.New("database.master_dsn is required")
	}
	slaves := splitList(cfg.GetString("database.slave_dsns"))
	opts := &dbpg.Options{
		MaxOpenConns:    intOr(cfg, "database.max_open_conns", 20),
		MaxIdleConns:    intOr(cfg, "database.max_idle_conns", 5),
		ConnMaxLifetime: durationOr(cfg, "database.conn_max_lifetime", 30*time.Minute),
	}
	log.Debug().Int("slaves", len(slaves)).Int("max_open_conns", opts.MaxOpenConns).Msg("database config built")
	return master, slaves, opts, nil
}

func BuildMigrationConfig(cfg *config.Config) MigrationConfig {
	dir := cfg.GetString("database.migrations_dir")
	if dir == "" {
		dir = "migrations/postgres"
	}
	return MigrationConfig{Dir: dir, DropOnShutdown: cfg.GetBool("database.drop_on_shutdown")}
}

func BuildAuthConfig(cfg *config.Config, log *zerolog.Logger) (AuthConfig, error) {
	secret := envOr("JWT_SECRET", cfg.GetString("auth.jwt_secret"))
	if secret == "" {
		return AuthConfig{}, errors.New("auth.jwt_secret is required")
	}
	if secret == "change-me" {
		log.Warn().Msg("auth.jwt_secret is the shipped default, set JWT_SECRET")
	}
	return AuthConfig{
		JWTSecret:       secret,
		ManagerTokenTTL: durationOr(cfg, "auth.manager_token_ttl", 30*24*time.Hour),
		StudentTokenTTL: durationOr(cfg, "auth.student_token_ttl", 24*time.Hour),
		BcryptCost:      intOr(cfg, "auth.bcrypt_cost", 10),
	}, nil
}

func BuildMailConfig(cfg *config.Config) MailConfig {
	return MailConfig{
		Host:     envOr("SMTP_HOST", cfg.GetString("mail.smtp_host")),
		Port:     intOr(cfg, "mail.smtp_port", 587),
		Username: envOr("SMTP_USERNAME", cfg.GetString("mail.username")),
		Password: envOr("SMTP_PASSWORD", cfg.GetString("mail.password")),
		From:     envOr("SMTP_FROM", cfg.GetString("mail.from")),
	}
}

func BuildNotifierConfig(cfg *config.Config) NotifierConfig {
	return NotifierConfig{
		Workers: intOr(cfg, "notifier.workers", 2),
		Buffer:  intOr(cfg, "notifier.buffer", 256),
		Timeout: durationOr(cfg, "notifier.timeout", 10*time.Second),
	}
}

func BuildRabbitConfig(cfg *config.Config, log *zerolog.Logger) (RabbitConfig, error) {
	rc := RabbitConfig{
		Enabled:  cfg.GetBool("rabbit.enabled"),
		Url:      envOr("RABBIT_URL", cfg.GetString("rabbit.url")),
		Exchange: cfg.GetString("rabbit.exchange"),
		Queue:    cfg.GetString("rabbit.queue"),
	}
	if !rc.Enabled {
		return rc, nil
	}
	if rc.Url == "" || rc.Exchange == "" || rc.Queue == "" {
		return rc, errors.New("rabbit.url, rabbit.exchange and rabbit.queue are required when rabbit is enabled")
	}
	log.Debug().Str("exchange", rc.Exchange).Str("queue", rc.Queue).Msg("rabbit config built")
	return rc, nil
}
