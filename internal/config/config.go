package config

import (
	"errors"
	"time"

	"github.com/caarlos0/env/v11"

	appenv "github.com/garrettladley/whoopsync/internal/env"
	"github.com/garrettladley/whoopsync/internal/xslog"
)

// Config is shared by the CLI and the server.
type Config struct {
	Env        appenv.Environment `env:"ENV" envDefault:"development"`
	LogLevel   xslog.Level        `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat  xslog.Format       `env:"LOG_FORMAT" envDefault:"json"`
	Whoop      Whoop              `envPrefix:"WHOOP_"`
	Sync       Sync               `envPrefix:"SYNC_"`
	RedisURL   string             `env:"REDIS_URL"`
	SQLitePath string             `env:"SQLITE_PATH"`
}

type Whoop struct {
	ClientID          string        `env:"CLIENT_ID"`
	ClientSecret      string        `env:"CLIENT_SECRET"`
	RedirectURL       string        `env:"REDIRECT_URL" envDefault:"http://localhost:8765/callback"`
	BaseURL           string        `env:"BASE_URL" envDefault:"https://api.prod.whoop.com/developer"`
	MinInterval       time.Duration `env:"MIN_INTERVAL" envDefault:"700ms"`
	ThrottledInterval time.Duration `env:"THROTTLED_INTERVAL" envDefault:"2s"`
	DailyLimit        int           `env:"DAILY_LIMIT" envDefault:"10000"`
	DailySoftLimit    int           `env:"DAILY_SOFT_LIMIT" envDefault:"9500"`
	MaxRetries        int           `env:"MAX_RETRIES" envDefault:"3"`
	RetryBaseDelay    time.Duration `env:"RETRY_BASE_DELAY" envDefault:"1s"`
	Timeout           time.Duration `env:"TIMEOUT" envDefault:"60s"`
}

type Sync struct {
	DailyWindow        time.Duration `env:"DAILY_WINDOW" envDefault:"72h"`
	PageSize           int           `env:"PAGE_SIZE" envDefault:"25"`
	MaxPages           int           `env:"MAX_PAGES" envDefault:"100"`
	BackfillBatch      int           `env:"BACKFILL_BATCH" envDefault:"50"`
	CycleConcurrency   int           `env:"CYCLE_CONCURRENCY" envDefault:"2"`
	CycleFetchAttempts int           `env:"CYCLE_FETCH_ATTEMPTS" envDefault:"3"`
}

// Server adds the keys only the HTTP trigger surface needs.
type Server struct {
	Config
	Port        string `env:"PORT" envDefault:"8080"`
	DatabaseURL string `env:"DATABASE_URL,required,notEmpty"`
	CronSecret  string `env:"CRON_SECRET,required,notEmpty"`
	APIKey      string `env:"SYNC_API_KEY,required,notEmpty"`
}

var ErrMissingCredentials = errors.New("WHOOP_CLIENT_ID and WHOOP_CLIENT_SECRET must be set")

// Validate reports whether the OAuth client credentials are present.
func (w Whoop) Validate() error {
	if w.ClientID == "" || w.ClientSecret == "" {
		return ErrMissingCredentials
	}
	return nil
}

func Read() (Config, error) {
	return env.ParseAs[Config]()
}

func ReadServer() (Server, error) {
	return env.ParseAs[Server]()
}
