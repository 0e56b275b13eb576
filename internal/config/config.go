package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	EnvDev   = "dev"
	EnvStage = "stage"
	EnvProd  = "prod"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverLibSQL   = "libsql"
)

const (
	ProviderLocal = "local"
	ProviderISGD  = "isgd"
)

var (
	ErrUnknownEnv      = errors.New("unknown env")
	ErrUnknownDriver   = errors.New("unknown storage driver")
	ErrUnknownProvider = errors.New("unknown shortener provider")
	ErrMissingDSN      = errors.New("storage url is required")
)

type Config struct {
	Env        string     `yaml:"env"`
	HTTPServer HTTPServer `yaml:"http_server"`
	Storage    Storage    `yaml:"storage"`
	Postgres   Postgres   `yaml:"postgres"`
	SQLite     SQLite     `yaml:"sqlite"`
	Shortener  Shortener  `yaml:"shortener"`
	Auth       Auth       `yaml:"auth"`
}

type HTTPServer struct {
	Port           int           `yaml:"port"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	IdleTimeout    time.Duration `yaml:"idle_timeout"`
	MaxHeaderBytes  int           `yaml:"max_header_bytes"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	CertFile       string        `yaml:"cert_file"`
	KeyFile        string        `yaml:"key_file"`
}

var defaultHTTPServer = HTTPServer{
	Port:           8080,
	ReadTimeout:    5 * time.Second,
	WriteTimeout:   10 * time.Second,
	IdleTimeout:    time.Minute,
	MaxHeaderBytes:  1 << 20,
	ShutdownTimeout: 10 * time.Second,
}

func (s *HTTPServer) Addr() string {
	return fmt.Sprintf(":%d", s.Port)
}

// Storage selects the backend. URL, when set, is used as is instead of the
// backend specific settings; it is required for libsql.
type Storage struct {
	Driver string `yaml:"driver"`
	URL    string `yaml:"url"`
}

type Postgres struct {
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	DB              string        `yaml:"db"`
	SSLMode         string        `yaml:"sslmode"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
}

var defaultPostgres = Postgres{
	Host:            "localhost",
	Port:            5432,
	SSLMode:         "disable",
	ConnMaxIdleTime: 5 * time.Minute,
	ConnMaxLifetime: 30 * time.Minute,
	MaxIdleConns:    5,
	MaxOpenConns:    25,
}

func (p *Postgres) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		p.User, p.Password, p.Host, p.Port, p.DB, p.SSLMode)
}

type SQLite struct {
	Path         string `yaml:"path"`
	MaxOpenConns int    `yaml:"max_open_conns"`
}

var defaultSQLite = SQLite{
	Path:         "shortlink.db",
	MaxOpenConns: 1,
}

type Shortener struct {
	BaseURL    string `yaml:"base_url"`
	SlugLength int    `yaml:"slug_length"`
	MaxRetries int    `yaml:"max_retries"`
	Provider   string `yaml:"provider"`
	ISGD       ISGD   `yaml:"isgd"`
}

type ISGD struct {
	Endpoint string        `yaml:"endpoint"`
	Timeout  time.Duration `yaml:"timeout"`
}

var defaultShortener = Shortener{
	BaseURL:    "http://localhost:8080",
	SlugLength: 6,
	MaxRetries: 5,
	Provider:   ProviderLocal,
	ISGD: ISGD{
		Endpoint: "https://is.gd/create.php",
		Timeout:  10 * time.Second,
	},
}

type Auth struct {
	JWTSecret string `yaml:"jwt_secret"`
}

// LoadEnv loads variables from the given dotenv files (.env by default)
// without overriding ones already set. Missing files are ignored.
func LoadEnv(files ...string) error {
	const op = "config.LoadEnv"

	if len(files) == 0 {
		files = []string{".env"}
	}

	for _, file := range files {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%s: failed to load %s: %w", op, file, err)
		}
	}

	return nil
}

func Load(path string) (*Config, error) {
	const op = "config.Load"

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to open config file: %w", op, err)
	}
	defer f.Close()

	var cfg Config
	setDefaults(&cfg)

	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("%s: failed to decode config file: %w", op, err)
	}

	applyEnv(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("%s: invalid config: %w", op, err)
	}

	return &cfg, nil
}

func setDefaults(cfg *Config) {
	cfg.Env = EnvDev
	cfg.HTTPServer = defaultHTTPServer
	cfg.Storage = Storage{Driver: DriverPostgres}
	cfg.Postgres = defaultPostgres
	cfg.SQLite = defaultSQLite
	cfg.Shortener = defaultShortener
}

// applyEnv lets secrets live outside the config file.
func applyEnv(cfg *Config) {
	if v := os.Getenv("JWT_SECRET"); v != "" {
		cfg.Auth.JWTSecret = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Storage.URL = v
	}
}

func validate(cfg *Config) error {
	switch cfg.Env {
	case EnvDev, EnvStage, EnvProd:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownEnv, cfg.Env)
	}

	switch cfg.Storage.Driver {
	case DriverPostgres, DriverSQLite:
	case DriverLibSQL:
		if cfg.Storage.URL == "" {
			return ErrMissingDSN
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Storage.Driver)
	}

	switch cfg.Shortener.Provider {
	case ProviderLocal, ProviderISGD:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.Shortener.Provider)
	}

	return nil
}
