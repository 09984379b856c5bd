package config

// Config holds all application configuration.
// Fields are populated by viper and validated with go-playground/validator.
type Config struct {
	Server      ServerConfig      `mapstructure:"server"      validate:"required"`
	Database    DatabaseConfig    `mapstructure:"database"    validate:"required"`
	Redis       RedisConfig       `mapstructure:"redis"`
	Auth        AuthConfig        `mapstructure:"auth"        validate:"required"`
	Cards       CardsConfig       `mapstructure:"cards"       validate:"required"`
	Maintenance MaintenanceConfig `mapstructure:"maintenance"`
}

// ServerConfig defines HTTP server settings.
type ServerConfig struct {
	// Port is the TCP port the HTTP server listens on.
	Port int `mapstructure:"port" validate:"required,gt=0,lt=65536"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`

	// ShutdownTimeoutSeconds bounds graceful shutdown.
	ShutdownTimeoutSeconds int `mapstructure:"shutdown_timeout_seconds" validate:"gte=0"`
}

// DatabaseConfig selects and configures the primary store.
type DatabaseConfig struct {
	// Driver is "postgres" for production or "memory" for local runs and tests.
	Driver string `mapstructure:"driver" validate:"required,oneof=postgres memory"`

	// URL is the Postgres connection string; required when Driver is postgres.
	URL string `mapstructure:"url" validate:"required_if=Driver postgres"`

	MaxOpenConns           int  `mapstructure:"max_open_conns"            validate:"gte=0"`
	MaxIdleConns           int  `mapstructure:"max_idle_conns"            validate:"gte=0"`
	ConnMaxLifetimeMinutes int  `mapstructure:"conn_max_lifetime_minutes" validate:"gte=0"`
	MigrateOnStart         bool `mapstructure:"migrate_on_start"`
}

// RedisConfig configures the optional Redis refresh-token store. When Addr
// is empty refresh tokens live in the primary store.
type RedisConfig struct {
	Addr      string `mapstructure:"addr"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"         validate:"gte=0"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

// AuthConfig configures token signing and password hashing.
type AuthConfig struct {
	// AccessSecret signs access tokens. It must differ from RefreshSecret so
	// that a token of one kind never verifies as the other.
	AccessSecret string `mapstructure:"access_secret" validate:"required,min=32"`

	// RefreshSecret signs refresh tokens.
	RefreshSecret string `mapstructure:"refresh_secret" validate:"required,min=32,nefield=AccessSecret"`

	AccessTokenLifetimeMinutes  int `mapstructure:"access_token_lifetime_minutes"  validate:"required,gt=0"`
	RefreshTokenLifetimeMinutes int `mapstructure:"refresh_token_lifetime_minutes" validate:"required,gt=0,gtfield=AccessTokenLifetimeMinutes"`

	// ClockSkewSeconds is the leeway applied when checking token time claims.
	ClockSkewSeconds int `mapstructure:"clock_skew_seconds" validate:"gte=0,lte=300"`

	// BcryptCost is the work factor for password hashes.
	BcryptCost int `mapstructure:"bcrypt_cost" validate:"gte=4,lte=31"`

	// BootstrapAdmin, when Phone is set, is created as an ADMIN on startup
	// if no user with that phone exists.
	BootstrapAdmin BootstrapAdminConfig `mapstructure:"bootstrap_admin"`
}

// BootstrapAdminConfig describes the administrator created on first start.
type BootstrapAdminConfig struct {
	Phone      string `mapstructure:"phone"      validate:"omitempty,e164|numeric"`
	Password   string `mapstructure:"password"   validate:"required_with=Phone"`
	Name       string `mapstructure:"name"`
	Surname    string `mapstructure:"surname"`
	Patronymic string `mapstructure:"patronymic"`
}

// CardsConfig configures card provisioning.
type CardsConfig struct {
	// EncryptionKey is the master secret card numbers are encrypted with.
	EncryptionKey string `mapstructure:"encryption_key" validate:"required,min=32"`

	// ValidityYears is how long a new card stays valid.
	ValidityYears int `mapstructure:"validity_years" validate:"required,gt=0,lte=10"`

	// MaxGenerationAttempts bounds number regeneration on collisions.
	MaxGenerationAttempts int `mapstructure:"max_generation_attempts" validate:"required,gt=0"`
}

// MaintenanceConfig schedules background housekeeping. Schedules use the
// standard five-field cron syntax or descriptors such as "@hourly".
type MaintenanceConfig struct {
	Enabled         bool   `mapstructure:"enabled"`
	ExpirySweepCron string `mapstructure:"expiry_sweep_cron" validate:"required_if=Enabled true"`
	TokenPurgeCron  string `mapstructure:"token_purge_cron"  validate:"required_if=Enabled true"`
}
