package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/Koyo-os/docusurvey/pkg/logger"
	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App struct {
		BaseURL    string `yaml:"base_url" env:"APP_BASE_URL"`
		HTTPAddr   string `yaml:"http_addr" env:"APP_HTTP_ADDR"`
		HealthAddr string `yaml:"health_addr" env:"APP_HEALTH_ADDR"`
		Timezone   string `yaml:"timezone" env:"APP_TIMEZONE"`
	} `yaml:"app"`
	Log      logger.Config `yaml:"log"`
	Database struct {
		// Driver is one of sqlite, mysql, postgres, mongo.
		Driver        string `yaml:"driver" env:"DB_DRIVER"`
		DSN           string `yaml:"dsn" env:"DB_DSN"`
		MongoDatabase string `yaml:"mongo_database" env:"DB_MONGO_DATABASE"`
	} `yaml:"database"`
	Reqs struct {
		ReconcileRequestType string `yaml:"reconcile_req_type" env:"REQ_RECONCILE"`
		OrphanedRequestType  string `yaml:"orphaned_req_type" env:"REQ_ORPHANED"`
	} `yaml:"reqs"`
	Urls struct {
		Redis    string `yaml:"redis" env:"REDIS_URL"`
		Rabbitmq string `yaml:"rabbitmq" env:"RABBITMQ_URL"`
	} `yaml:"urls"`
	Exchange struct {
		Request string `yaml:"request" env:"EXCHANGE_REQUEST"`
		Output  string `yaml:"output" env:"EXCHANGE_OUTPUT"`
	} `yaml:"exchange"`
	Queue struct {
		Request string `yaml:"request" env:"QUEUE_REQUEST"`
	} `yaml:"queue"`
	Storage struct {
		Bucket        string        `yaml:"bucket" env:"STORAGE_BUCKET"`
		Region        string        `yaml:"region" env:"STORAGE_REGION"`
		Endpoint      string        `yaml:"endpoint" env:"STORAGE_ENDPOINT"`
		AccessKeyID   string        `yaml:"access_key_id" env:"STORAGE_ACCESS_KEY_ID"`
		SecretKey     string        `yaml:"secret_access_key" env:"STORAGE_SECRET_ACCESS_KEY"`
		PathStyle     bool          `yaml:"path_style" env:"STORAGE_PATH_STYLE"`
		PublicBaseURL string        `yaml:"public_base_url" env:"STORAGE_PUBLIC_BASE_URL"`
		URLExpiry     time.Duration `yaml:"url_expiry" env:"STORAGE_URL_EXPIRY"`
		MaxScanBytes  int64         `yaml:"max_scan_bytes" env:"STORAGE_MAX_SCAN_BYTES"`
	} `yaml:"storage"`
	Cache struct {
		TTL time.Duration `yaml:"ttl" env:"CACHE_TTL"`
	} `yaml:"cache"`
	Auth struct {
		JWTSecret string `yaml:"jwt_secret" env:"AUTH_JWT_SECRET"`
	} `yaml:"auth"`
	Dashboard struct {
		InListLimit       int `yaml:"in_list_limit" env:"DASHBOARD_IN_LIST_LIMIT"`
		DeleteConcurrency int `yaml:"delete_concurrency" env:"DELETE_CONCURRENCY"`
	} `yaml:"dashboard"`
	Retry struct {
		Count    uint `yaml:"count" env:"RETRY_COUNT"`
		Interval uint `yaml:"interval" env:"RETRY_INTERVAL"`
	} `yaml:"retry"`
}

// Init reads the YAML file at path when it exists, loads a .env file from the
// working directory if present and then lets environment variables override
// both. A missing YAML file is not an error.
func Init(path string) (*Config, error) {
	cfg := Default()

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("error load .env: %w", err)
	}

	if path != "" {
		file, err := os.Open(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("error open file: %w", err)
		default:
			defer file.Close()

			if err = yaml.NewDecoder(file).Decode(cfg); err != nil {
				return nil, fmt.Errorf("decode error: %w", err)
			}
		}
	}

	// env wins over the file
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("error parse env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Default returns the configuration used when neither a file nor the
// environment says otherwise.
func Default() *Config {
	cfg := new(Config)

	cfg.App.BaseURL = "http://localhost:8080"
	cfg.App.HTTPAddr = ":8080"
	cfg.App.Timezone = "Local"

	cfg.Log = logger.Config{
		LogLevel:  "info",
		AppName:   "docusurvey",
		AddCaller: true,
	}

	cfg.Database.Driver = "sqlite"
	cfg.Database.DSN = "docusurvey.db"
	cfg.Database.MongoDatabase = "docusurvey"

	cfg.Reqs.ReconcileRequestType = "survey.reconcile"
	cfg.Reqs.OrphanedRequestType = "response.orphaned"

	cfg.Exchange.Request = "docusurvey.requests"
	cfg.Exchange.Output = "docusurvey.events"
	cfg.Queue.Request = "docusurvey.requests"

	cfg.Storage.Region = "us-east-1"
	cfg.Storage.URLExpiry = 7 * 24 * time.Hour
	cfg.Storage.MaxScanBytes = 20 << 20

	cfg.Cache.TTL = 10 * time.Minute

	cfg.Dashboard.InListLimit = 30
	cfg.Dashboard.DeleteConcurrency = 8

	cfg.Retry.Count = 5
	cfg.Retry.Interval = 2

	return cfg
}

func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite", "mysql", "postgres", "mongo":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}

	if c.Dashboard.InListLimit <= 0 {
		return errors.New("dashboard in-list limit must be positive")
	}

	if c.Dashboard.DeleteConcurrency <= 0 {
		return errors.New("delete concurrency must be positive")
	}

	if _, err := c.Location(); err != nil {
		return err
	}

	return nil
}

// Location resolves App.Timezone, the fallback zone for viewers whose token
// does not carry one.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.App.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.App.Timezone, err)
	}
	return loc, nil
}
