package host

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	TransportVsock = "vsock"
	TransportTCP   = "tcp"
)

// Config is read from AUCTIOND_* environment variables.
type Config struct {
	Transport   string        `env:"AUCTIOND_TRANSPORT" envDefault:"vsock"`
	VsockPort   uint32        `env:"AUCTIOND_VSOCK_PORT" envDefault:"5000"`
	ListenAddr  string        `env:"AUCTIOND_LISTEN_ADDR" envDefault:"127.0.0.1:5000"`
	MaxWorkers  int           `env:"AUCTIOND_MAX_WORKERS,required"`
	ReadTimeout time.Duration `env:"AUCTIOND_READ_TIMEOUT" envDefault:"30s"`

	// DataDir holds the leveldb files. Empty keeps state in memory.
	DataDir string `env:"AUCTIOND_DATA_DIR"`

	ContractAddr string `env:"AUCTIOND_CONTRACT_ADDR,required"`
	AddrPrefix   string `env:"AUCTIOND_ADDR_PREFIX" envDefault:"escrow"`

	MetricsAddr string `env:"AUCTIOND_METRICS_ADDR"`
	LogLevel    string `env:"AUCTIOND_LOG_LEVEL" envDefault:"info"`
	LogEncoding string `env:"AUCTIOND_LOG_ENCODING" envDefault:"json"`
}

// LoadConfig parses the process environment.
func LoadConfig() (*Config, error) {
	return parseConfig(env.Options{})
}

// LoadConfigFrom parses the given variables instead of the process environment.
func LoadConfigFrom(vars map[string]string) (*Config, error) {
	return parseConfig(env.Options{Environment: vars})
}

func parseConfig(opts env.Options) (*Config, error) {
	cfg, err := env.ParseAsWithOptions[Config](opts)
	if err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Transport {
	case TransportVsock, TransportTCP:
	default:
		return fmt.Errorf("invalid AUCTIOND_TRANSPORT %q (must be %s or %s)", c.Transport, TransportVsock, TransportTCP)
	}
	if c.MaxWorkers <= 0 {
		return fmt.Errorf("invalid AUCTIOND_MAX_WORKERS %d (must be positive)", c.MaxWorkers)
	}
	if c.ReadTimeout <= 0 {
		return fmt.Errorf("invalid AUCTIOND_READ_TIMEOUT %s (must be positive)", c.ReadTimeout)
	}
	return nil
}

// NewLogger builds the process logger. Unknown levels fall back to info.
func NewLogger(cfg *Config) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if err := level.Set(strings.ToLower(cfg.LogLevel)); err != nil {
		level = zapcore.InfoLevel
	}

	zc := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Encoding:         cfg.LogEncoding,
		EncoderConfig:    zap.NewProductionEncoderConfig(),
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	}
	if cfg.LogEncoding == "console" {
		zc.EncoderConfig = zap.NewDevelopmentEncoderConfig()
	}
	return zc.Build()
}
