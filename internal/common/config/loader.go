// internal/common/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"
)

const envPrefix = "PIZZA"

// Load reads configs/config.yaml, the environment specific overlay
// config.<env>.yaml, a .env file and PIZZA_* environment variables.
func Load() (*Config, error) {
	loadEnvFile()
	return LoadFrom("./configs", "../../configs", ".")
}

// LoadFrom is Load without the .env lookup, searching the given directories
// for config files.
func LoadFrom(paths ...string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	// PIZZA_AUTH_JWT_SECRET overrides auth.jwt_secret
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = v.GetString("app.environment")
	}
	v.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = v.MergeInConfig() // overlay is optional

	expandEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func loadEnvFile() {
	possiblePaths := []string{
		".env",
		"../.env",
		"../../.env",
	}

	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

// Find project root by looking for go.mod
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}

// expandEnvVars resolves ${VAR} placeholders inside string values.
func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		strVal, ok := v.Get(key).(string)
		if !ok {
			continue
		}
		if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
			expanded := os.ExpandEnv(strVal)
			if expanded != strVal && expanded != "" {
				v.Set(key, expanded)
			}
		}
	}
}

// setDefaults registers every key so AutomaticEnv can override it during
// Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "pizza-service")
	v.SetDefault("app.version", "dev")
	v.SetDefault("app.environment", "development")

	v.SetDefault("server.port", 3000)
	v.SetDefault("server.read_timeout", 15000)
	v.SetDefault("server.write_timeout", 30000)
	v.SetDefault("server.shutdown_timeout", 10000)

	v.SetDefault("database.postgres.host", "localhost")
	v.SetDefault("database.postgres.port", 5432)
	v.SetDefault("database.postgres.database", "pizza")
	v.SetDefault("database.postgres.user", "pizza")
	v.SetDefault("database.postgres.password", "")
	v.SetDefault("database.postgres.max_connections", 25)
	v.SetDefault("database.postgres.max_idle", 5)
	v.SetDefault("database.postgres.sslmode", "disable")
	v.SetDefault("database.postgres.ensure_schema", true)

	v.SetDefault("database.redis.address", "localhost:6379")
	v.SetDefault("database.redis.password", "")
	v.SetDefault("database.redis.db", 0)

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.issuer", "pizza-service")
	v.SetDefault("auth.token_ttl", 0)
	v.SetDefault("auth.bcrypt_cost", bcrypt.DefaultCost)
	v.SetDefault("auth.session_store", SessionStorePostgres)
	v.SetDefault("auth.session_prune_interval", 600000)
	v.SetDefault("auth.bootstrap_admin.enabled", false)
	v.SetDefault("auth.bootstrap_admin.name", "pizza admin")
	v.SetDefault("auth.bootstrap_admin.email", "")
	v.SetDefault("auth.bootstrap_admin.password", "")

	v.SetDefault("factory.url", "https://pizza-factory.cs329.click")
	v.SetDefault("factory.api_key", "")
	v.SetDefault("factory.timeout", 10000)

	v.SetDefault("pagination.franchises", 10)
	v.SetDefault("pagination.orders", 10)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.source", "pizza-service")
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("integrations.aws.region", "us-east-1")
	v.SetDefault("integrations.aws.sns.enabled", false)
	v.SetDefault("integrations.aws.sns.topic_arn", "")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
}

// Validate checks the loaded configuration.
func (c *Config) Validate() error {
	err := validation.ValidateStruct(c,
		validation.Field(&c.Server),
		validation.Field(&c.Database),
		validation.Field(&c.Auth),
		validation.Field(&c.Factory),
		validation.Field(&c.Pagination),
		validation.Field(&c.Integrations),
	)
	if err != nil {
		return err
	}

	if c.Auth.SessionStore == SessionStoreRedis {
		return validation.Validate(c.Database.Redis.Address,
			validation.Required.Error("database.redis.address is required for the redis session store"))
	}
	return nil
}

func (s ServerConfig) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

func (d DatabaseConfig) Validate() error {
	return validation.ValidateStruct(&d,
		validation.Field(&d.Postgres),
	)
}

func (p PostgresConfig) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Host, validation.Required),
		validation.Field(&p.Database, validation.Required),
		validation.Field(&p.User, validation.Required),
	)
}

func (a AuthConfig) Validate() error {
	return validation.ValidateStruct(&a,
		validation.Field(&a.JWTSecret, validation.Required),
		validation.Field(&a.TokenTTL, validation.Min(0)),
		validation.Field(&a.BcryptCost, validation.Min(bcrypt.MinCost), validation.Max(bcrypt.MaxCost)),
		validation.Field(&a.SessionStore, validation.Required,
			validation.In(SessionStorePostgres, SessionStoreRedis, SessionStoreMemory)),
		validation.Field(&a.SessionPruneInterval, validation.Min(0)),
		validation.Field(&a.BootstrapAdmin),
	)
}

func (b BootstrapAdminConfig) Validate() error {
	return validation.ValidateStruct(&b,
		validation.Field(&b.Name, validation.When(b.Enabled, validation.Required)),
		validation.Field(&b.Email, validation.When(b.Enabled, validation.Required, is.EmailFormat)),
		validation.Field(&b.Password, validation.When(b.Enabled, validation.Required)),
	)
}

func (f FactoryConfig) Validate() error {
	return validation.ValidateStruct(&f,
		validation.Field(&f.URL, validation.Required, is.URL),
		validation.Field(&f.Timeout, validation.Required, validation.Min(1)),
	)
}

func (p PaginationConfig) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Franchises, validation.Required, validation.Min(1)),
		validation.Field(&p.Orders, validation.Required, validation.Min(1)),
	)
}

func (i IntegrationConfig) Validate() error {
	return validation.ValidateStruct(&i.AWS.SNS,
		validation.Field(&i.AWS.SNS.TopicARN, validation.When(i.AWS.SNS.Enabled, validation.Required)),
	)
}
