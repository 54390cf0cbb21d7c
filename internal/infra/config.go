package infra

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const maxAuditBatchSize = 8191

// Config — корневая структура конфигурации сервиса.
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Metrics     MetricsConfig     `mapstructure:"metrics"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Redis       RedisConfig       `mapstructure:"redis"`
	Auth        AuthConfig        `mapstructure:"auth"`
	Rules       RulesConfig       `mapstructure:"rules"`
	Permissions PermissionsConfig `mapstructure:"permissions"`
	Notify      NotifyConfig      `mapstructure:"notify"`
	Audit       AuditConfig       `mapstructure:"audit"`
	Lang        LangConfig        `mapstructure:"lang"`
	Logger      LoggerConfig      `mapstructure:"logger"`
}

// ServerConfig описывает настройки HTTP-сервера, куда хост шлет попытки размещения.
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

// DatabaseConfig описывает подключение к PostgreSQL (правила и журнал отказов).
type DatabaseConfig struct {
	URL      string `mapstructure:"url"`
	MaxConns int32  `mapstructure:"max_conns"`
	MinConns int32  `mapstructure:"min_conns"`
}

// RedisConfig описывает подключение к Redis (гранты bypass и reload-сигналы).
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// AuthConfig — публичный ключ хоста, которым подписаны его токены.
type AuthConfig struct {
	Disabled      bool   `mapstructure:"disabled"`
	PublicKeyPath string `mapstructure:"public_key_path"`
	PublicKey     []byte
}

// RulesConfig — где лежит RuleConfig.
type RulesConfig struct {
	Storage string `mapstructure:"storage"` // file, postgres
	Path    string `mapstructure:"path"`
	Plugin  string `mapstructure:"plugin"` // ключ строки в Postgres
}

// PermissionsConfig — откуда берется bypass.
type PermissionsConfig struct {
	Backend      string   `mapstructure:"backend"` // static, redis, casbin
	Actors       []string `mapstructure:"actors"`  // static и seed для redis
	CasbinModel  string   `mapstructure:"casbin_model"`
	CasbinPolicy string   `mapstructure:"casbin_policy"`
}

// NotifyConfig — callback хоста для сообщений игроку.
type NotifyConfig struct {
	WebhookURL  string        `mapstructure:"webhook_url"`
	Locale      string        `mapstructure:"locale"`
	Timeout     time.Duration `mapstructure:"timeout"`
	RateLimit   float64       `mapstructure:"rate_limit"`
	Burst       int           `mapstructure:"burst"`
	MaxAttempts uint          `mapstructure:"max_attempts"`

	// Настройки Circuit Breaker для webhook хоста
	CBMaxRequests uint32        `mapstructure:"cb_max_requests"`
	CBInterval    time.Duration `mapstructure:"cb_interval"`
	CBTimeout     time.Duration `mapstructure:"cb_timeout"`
}

type AuditConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	BufferSize    int           `mapstructure:"buffer_size"`
	BatchSize     int           `mapstructure:"batch_size"`
	FlushInterval time.Duration `mapstructure:"flush_interval"`
}

// LangConfig — каталог переводов: <dir>/<locale>.json или <dir>/<locale>/<plugin>.json.
type LangConfig struct {
	Dir string `mapstructure:"dir"`
}

// LoggerConfig настраивает поведение zap логгера.
type LoggerConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, console
}

// LoadConfig инициализирует конфигурацию, объединяя значения из файла и ENV.
// path может быть пустым: тогда ищем config.yaml в . и ./configs.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
	}

	// RULES_PATH=/srv/oxide/config/NoSignsOnDeployables.json перекроет rules.path
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Если файла нет: работаем на ENV и дефолтах
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	cfg.Auth.PublicKey = loadKeyResource(cfg.Auth.PublicKeyPath, "AUTH_PUBLIC_KEY_DATA")
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 5*time.Second)
	v.SetDefault("server.write_timeout", 10*time.Second)
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.addr", ":9090")
	v.SetDefault("database.max_conns", 15)
	v.SetDefault("database.min_conns", 5)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("rules.storage", "file")
	v.SetDefault("rules.path", "config/NoSignsOnDeployables.json")
	v.SetDefault("rules.plugin", "NoSignsOnDeployables")
	v.SetDefault("permissions.backend", "static")
	v.SetDefault("notify.locale", "en")
	v.SetDefault("notify.timeout", 3*time.Second)
	v.SetDefault("notify.rate_limit", 50)
	v.SetDefault("notify.burst", 10)
	v.SetDefault("notify.max_attempts", 3)
	v.SetDefault("notify.cb_max_requests", 3)
	v.SetDefault("notify.cb_interval", 5*time.Second)
	v.SetDefault("notify.cb_timeout", 30*time.Second)
	v.SetDefault("audit.buffer_size", 1000)
	v.SetDefault("audit.batch_size", 100)
	v.SetDefault("audit.flush_interval", 1*time.Second)
	v.SetDefault("lang.dir", "lang")
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "json")
}

func (c *Config) validate() error {
	switch c.Rules.Storage {
	case "file", "postgres":
	default:
		return fmt.Errorf("config: unknown rules.storage %q (expected file|postgres)", c.Rules.Storage)
	}
	switch c.Permissions.Backend {
	case "static", "redis", "casbin":
	default:
		return fmt.Errorf("config: unknown permissions.backend %q (expected static|redis|casbin)", c.Permissions.Backend)
	}
	if c.Rules.Storage == "postgres" && c.Database.URL == "" {
		return errors.New("config: rules.storage=postgres requires database.url")
	}
	// 8 параметров на строку, лимит Postgres 65535 на запрос
	if c.Audit.BatchSize > maxAuditBatchSize {
		return fmt.Errorf("config: audit.batch_size %d exceeds %d", c.Audit.BatchSize, maxAuditBatchSize)
	}
	if c.Audit.Enabled && c.Database.URL == "" {
		return errors.New("config: audit.enabled requires database.url")
	}
	if c.Permissions.Backend == "redis" && !c.Redis.Enabled {
		return errors.New("config: permissions.backend=redis requires redis.enabled")
	}
	// casbin_model можно не указывать: возьмется встроенная RBAC-модель
	if c.Permissions.Backend == "casbin" && c.Permissions.CasbinPolicy == "" {
		return errors.New("config: permissions.backend=casbin requires casbin_policy")
	}
	return nil
}

// loadKeyResource — PEM из ENV (Docker/K8s) или из файла по пути из конфига.
func loadKeyResource(path string, envDataKey string) []byte {
	if data := os.Getenv(envDataKey); data != "" {
		return []byte(data)
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			return data
		}
	}
	return nil
}
