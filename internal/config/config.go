package config

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sethvargo/go-envconfig"
	log "github.com/sirupsen/logrus"
)

type (
	Config struct {
		DefaultLanguage string `env:"LANG,default=en"`
		LogLevel        int    `env:"LOG_LEVEL,default=4"`
		DotPath         string `env:"DOT_PATH,default=~/.quickreport"`
		DBName          string `env:"DB_NAME,default=reports.db"`
		MetricsAddr     string `env:"METRICS_ADDR,default=:2112"`
		Reports         Reports
		Notifications   Notifications
		Rewards         map[string]string `env:"REWARDS"`
	}

	Reports struct {
		Cooldown               time.Duration `env:"COOLDOWN,default=60s"`
		StorageTimeout         time.Duration `env:"STORAGE_TIMEOUT,default=5s"`
		Workers                int           `env:"WORKERS,default=8"`
		DefaultRejectionReason string        `env:"DEFAULT_REJECTION_REASON,default=No reason provided"`
	}

	Notifications struct {
		OperatorPermission string            `env:"OPERATOR_PERMISSION,default=quickreport.admin"`
		Operators          map[string]string `env:"OPERATORS"`
		Shards             int               `env:"EVENT_SHARDS,default=4"`
		QueueSize          int               `env:"EVENT_QUEUE,default=1024"`
		TTL                time.Duration     `env:"EVENT_TTL,default=5m"`
	}
)

var (
	once         sync.Once
	globalConfig = &Config{}
	globalErr    error
)

func Load() (Config, error) {
	once.Do(func() {
		cfg, err := Process(context.Background(), envconfig.OsLookuper())
		if err != nil {
			globalErr = err
			return
		}
		log.Traceln("loaded config")
		globalConfig = cfg
	})
	return *globalConfig, globalErr
}

// Process reads a fresh Config from the given lookuper, all keys prefixed with QR_.
func Process(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	cfg := &Config{}
	envcfg := envconfig.Config{
		Lookuper: envconfig.PrefixLookuper("QR_", lookuper),
		Target:   cfg,
	}
	if err := envconfig.ProcessWith(ctx, &envcfg); err != nil {
		return nil, errors.WithMessage(err, "process env config")
	}
	if cfg.Reports.Workers < 1 {
		cfg.Reports.Workers = 1
	}
	if cfg.Notifications.Shards < 1 {
		cfg.Notifications.Shards = 1
	}
	return cfg, nil
}

func Get() Config {
	cfg, err := Load()
	if err != nil {
		log.WithField("error", err.Error()).Error("cant load config")
	}
	return cfg
}
