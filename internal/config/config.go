package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v2"
)

// PlanPrice is one catalog entry seeded at startup.
type PlanPrice struct {
	Plan   string `yaml:"plan"`
	Period string `yaml:"period"`
	Price  string `yaml:"price"`
}

type Config struct {
	Server struct {
		Host          string   `yaml:"host"`
		Port          int      `yaml:"port"`
		Env           string   `yaml:"env"`
		PublicBaseURL string   `yaml:"public_base_url"`
		CORSOrigins   []string `yaml:"cors_origins"`
	} `yaml:"server"`

	Database struct {
		Driver       string        `yaml:"driver"` // postgres, mysql
		DSN          string        `yaml:"url"`
		FeedMode     string        `yaml:"feed_mode"` // listen, poll
		PollInterval time.Duration `yaml:"poll_interval"`
	} `yaml:"database"`

	Gateway struct {
		BaseURL        string        `yaml:"base_url"`
		ConsumerKey    string        `yaml:"consumer_key"`
		ConsumerSecret string        `yaml:"consumer_secret"`
		IPNURL         string        `yaml:"ipn_url"`
		CallbackURL    string        `yaml:"callback_url"`
		TokenMargin    time.Duration `yaml:"token_margin"`
		RequestTimeout time.Duration `yaml:"request_timeout"`
		RetryBackoff   time.Duration `yaml:"retry_backoff"`
	} `yaml:"gateway"`

	Catalog []PlanPrice `yaml:"catalog"`

	Tickets struct {
		DuplicateWindow time.Duration `yaml:"duplicate_window"`
		VerifyBaseURL   string        `yaml:"verify_base_url"`
	} `yaml:"tickets"`

	Email struct {
		Enabled      bool   `yaml:"enabled"`
		SMTPHost     string `yaml:"smtp_host"`
		SMTPPort     int    `yaml:"smtp_port"`
		SMTPUsername string `yaml:"smtp_user"`
		SMTPPassword string `yaml:"smtp_password"`
		FromEmail    string `yaml:"from_email"`
		FromName     string `yaml:"from_name"`
		TemplatesDir string `yaml:"templates_dir"`
	} `yaml:"email"`

	JWT struct {
		Secret string `yaml:"secret"`
		TTL    int    `yaml:"ttl"` // minutes
	} `yaml:"jwt"`

	Storage struct {
		Type       string `yaml:"type"`        // local, cloudflare_r2
		BasePath   string `yaml:"base_path"`   // For local storage
		BaseURL    string `yaml:"base_url"`    // Public URL base
		Bucket     string `yaml:"bucket"`      // For R2
		AccountID  string `yaml:"account_id"`  // For R2
		AccessKey  string `yaml:"access_key"`  // For R2
		SecretKey  string `yaml:"secret_key"`  // For R2
		PublicRead bool   `yaml:"public_read"` // Make files public
	} `yaml:"storage"`

	Admin struct {
		Email    string `yaml:"email"`
		Password string `yaml:"password"`
	} `yaml:"admin"`

	Workers struct {
		ReconcileInterval time.Duration `yaml:"reconcile_interval"`
		ReconcileMinAge   time.Duration `yaml:"reconcile_min_age"`
		ReconcileBatch    int           `yaml:"reconcile_batch"`
	} `yaml:"workers"`
}

var AppConfig *Config

func LoadConfig() {
	var cfg Config

	dbURL := os.Getenv("DATABASE_URL")

	if dbURL == "" {
		log.Println("Загрузка из config.yaml")

		configPath := os.Getenv("CONFIG_PATH")
		if configPath == "" {
			configPath = "config/config.yaml"
		}

		f, err := os.Open(configPath)
		if err != nil {
			log.Fatalf("Failed to open config file at %s: %v", configPath, err)
		}
		defer f.Close()

		decoder := yaml.NewDecoder(f)
		if err := decoder.Decode(&cfg); err != nil {
			log.Fatalf("Failed to parse config file at %s: %v", configPath, err)
		}

		cfg.applyDefaults()
		AppConfig = &cfg
		return
	}

	log.Println("Загрузка конфигурации из переменных окружения")

	cfg.Database.DSN = dbURL
	cfg.Database.Driver = getEnv("DATABASE_DRIVER", "postgres")
	cfg.Database.FeedMode = getEnv("DATABASE_FEED_MODE", "listen")
	cfg.Server.Env = getEnv("SERVER_ENV", "production")
	cfg.Server.Port, _ = strconv.Atoi(getEnv("SERVER_PORT", "8080"))
	cfg.Server.PublicBaseURL = os.Getenv("PUBLIC_BASE_URL")
	if origins := os.Getenv("CORS_ORIGINS"); origins != "" {
		cfg.Server.CORSOrigins = strings.Split(origins, ",")
	}

	cfg.Gateway.BaseURL = getEnv("GATEWAY_BASE_URL", "https://cybqa.pesapal.com/pesapalv3")
	cfg.Gateway.ConsumerKey = os.Getenv("GATEWAY_CONSUMER_KEY")
	cfg.Gateway.ConsumerSecret = os.Getenv("GATEWAY_CONSUMER_SECRET")
	cfg.Gateway.IPNURL = os.Getenv("GATEWAY_IPN_URL")
	cfg.Gateway.CallbackURL = os.Getenv("GATEWAY_CALLBACK_URL")

	cfg.JWT.Secret = os.Getenv("JWT_SECRET")
	cfg.JWT.TTL = 60

	cfg.Email.Enabled = os.Getenv("SMTP_HOST") != ""
	cfg.Email.SMTPHost = os.Getenv("SMTP_HOST")
	cfg.Email.SMTPPort, _ = strconv.Atoi(getEnv("SMTP_PORT", "587"))
	cfg.Email.SMTPUsername = os.Getenv("SMTP_USER")
	cfg.Email.SMTPPassword = os.Getenv("SMTP_PASSWORD")
	cfg.Email.FromEmail = os.Getenv("SMTP_FROM")
	cfg.Email.FromName = getEnv("SMTP_FROM_NAME", "LaunchPad")

	cfg.Storage.Type = "local"
	cfg.Storage.BasePath = "./uploads"
	cfg.Storage.BaseURL = "/files"

	cfg.Admin.Email = os.Getenv("ADMIN_EMAIL")
	cfg.Admin.Password = os.Getenv("ADMIN_PASSWORD")

	// CATALOG="pro:monthly:2099,pro:annual:20990"
	cfg.Catalog = parseCatalog(os.Getenv("CATALOG"))

	cfg.applyDefaults()
	AppConfig = &cfg
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "postgres"
	}
	if c.Database.FeedMode == "" {
		c.Database.FeedMode = "listen"
	}
	if c.Database.PollInterval <= 0 {
		c.Database.PollInterval = 3 * time.Second
	}
	if c.Gateway.TokenMargin <= 0 {
		c.Gateway.TokenMargin = 60 * time.Second
	}
	if c.Gateway.RequestTimeout <= 0 {
		c.Gateway.RequestTimeout = 15 * time.Second
	}
	if c.Gateway.RetryBackoff <= 0 {
		c.Gateway.RetryBackoff = 500 * time.Millisecond
	}
	if c.Tickets.DuplicateWindow <= 0 {
		c.Tickets.DuplicateWindow = 30 * 24 * time.Hour
	}
	if c.Tickets.VerifyBaseURL == "" {
		c.Tickets.VerifyBaseURL = strings.TrimRight(c.Server.PublicBaseURL, "/") + "/verify"
	}
	if c.JWT.TTL == 0 {
		c.JWT.TTL = 60
	}
	if c.Workers.ReconcileInterval <= 0 {
		c.Workers.ReconcileInterval = 5 * time.Minute
	}
	if c.Workers.ReconcileMinAge <= 0 {
		c.Workers.ReconcileMinAge = 10 * time.Minute
	}
	if c.Workers.ReconcileBatch <= 0 {
		c.Workers.ReconcileBatch = 50
	}
}

func parseCatalog(raw string) []PlanPrice {
	var out []PlanPrice
	for _, item := range strings.Split(raw, ",") {
		parts := strings.Split(strings.TrimSpace(item), ":")
		if len(parts) != 3 {
			continue
		}
		out = append(out, PlanPrice{Plan: parts[0], Period: parts[1], Price: parts[2]})
	}
	return out
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
