package config

import (
	"os"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

type Config struct {
	TelegramToken   string `env:"TELEGRAM_BOT_TOKEN"`
	TelegramDebug   bool   `env:"TELEGRAM_DEBUG" envDefault:"false"`
	BaseAdminChatID int64  `env:"BASE_ADMIN_CHAT_ID" envDefault:"0"`

	DatabaseDriver string `env:"DB_DRIVER" envDefault:"sqlite"`
	DatabaseURL    string `env:"DATABASE_URL" envDefault:"crew_schedule.db"`

	// EnterpriseID - предприятие по умолчанию для CLI и первого администратора
	EnterpriseID uuid.UUID `env:"ENTERPRISE_ID"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	PropagationWorkers          int  `env:"PROPAGATION_WORKERS" envDefault:"4"`
	ReconcileProtectLongAbsence bool `env:"RECONCILE_PROTECT_LONG_ABSENCE" envDefault:"false"`

	MetricsAddr string `env:"METRICS_ADDR" envDefault:":9102"`
}

var instance *Config
var once sync.Once

// GetConfig - общий экземпляр для процессов бота и CLI
func GetConfig() *Config {
	once.Do(func() {
		cfg, err := Load()
		if err != nil {
			logrus.Fatalf("error loading config: %s", err.Error())
		}
		instance = cfg
	})

	return instance
}

// Load читает .env (если есть) и переменные окружения
func Load() (*Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, err
		}
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	if cfg.PropagationWorkers < 1 {
		cfg.PropagationWorkers = 1
	}

	return cfg, nil
}

// Level - уровень логирования logrus, info при нераспознанном значении
func (c *Config) Level() logrus.Level {
	lvl, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return logrus.InfoLevel
	}
	return lvl
}
