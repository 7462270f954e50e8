package host

import (
	"testing"
	"time"

	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"
)

func TestLoadConfigFrom_Defaults(t *testing.T) {
	cfg, err := LoadConfigFrom(map[string]string{
		"AUCTIOND_MAX_WORKERS":   "8",
		"AUCTIOND_CONTRACT_ADDR": "escrow1contract",
	})
	assert.NoError(t, err)
	check.Equal(t, TransportVsock, cfg.Transport)
	check.Equal(t, uint32(5000), cfg.VsockPort)
	check.Equal(t, "127.0.0.1:5000", cfg.ListenAddr)
	check.Equal(t, 8, cfg.MaxWorkers)
	check.Equal(t, 30*time.Second, cfg.ReadTimeout)
	check.Equal(t, "", cfg.DataDir)
	check.Equal(t, "escrow", cfg.AddrPrefix)
	check.Equal(t, "info", cfg.LogLevel)
	check.Equal(t, "json", cfg.LogEncoding)
}

func TestLoadConfigFrom_Overrides(t *testing.T) {
	cfg, err := LoadConfigFrom(map[string]string{
		"AUCTIOND_TRANSPORT":     "tcp",
		"AUCTIOND_LISTEN_ADDR":   "0.0.0.0:7000",
		"AUCTIOND_MAX_WORKERS":   "2",
		"AUCTIOND_READ_TIMEOUT":  "250ms",
		"AUCTIOND_DATA_DIR":      "/var/lib/auctiond",
		"AUCTIOND_CONTRACT_ADDR": "escrow1contract",
		"AUCTIOND_ADDR_PREFIX":   "wasm",
		"AUCTIOND_METRICS_ADDR":  ":9090",
		"AUCTIOND_LOG_LEVEL":     "debug",
		"AUCTIOND_LOG_ENCODING":  "console",
	})
	assert.NoError(t, err)
	check.Equal(t, TransportTCP, cfg.Transport)
	check.Equal(t, "0.0.0.0:7000", cfg.ListenAddr)
	check.Equal(t, 250*time.Millisecond, cfg.ReadTimeout)
	check.Equal(t, "/var/lib/auctiond", cfg.DataDir)
	check.Equal(t, "wasm", cfg.AddrPrefix)
	check.Equal(t, ":9090", cfg.MetricsAddr)

	logger, err := NewLogger(cfg)
	assert.NoError(t, err)
	check.NotNil(t, logger)
}

func TestLoadConfigFrom_Invalid(t *testing.T) {
	tests := []struct {
		name string
		vars map[string]string
	}{
		{
			name: "missing workers",
			vars: map[string]string{"AUCTIOND_CONTRACT_ADDR": "escrow1contract"},
		},
		{
			name: "missing contract",
			vars: map[string]string{"AUCTIOND_MAX_WORKERS": "4"},
		},
		{
			name: "zero workers",
			vars: map[string]string{"AUCTIOND_MAX_WORKERS": "0", "AUCTIOND_CONTRACT_ADDR": "escrow1contract"},
		},
		{
			name: "unknown transport",
			vars: map[string]string{"AUCTIOND_TRANSPORT": "udp", "AUCTIOND_MAX_WORKERS": "4", "AUCTIOND_CONTRACT_ADDR": "escrow1contract"},
		},
		{
			name: "bad timeout",
			vars: map[string]string{"AUCTIOND_READ_TIMEOUT": "soon", "AUCTIOND_MAX_WORKERS": "4", "AUCTIOND_CONTRACT_ADDR": "escrow1contract"},
		},
		{
			name: "negative timeout",
			vars: map[string]string{"AUCTIOND_READ_TIMEOUT": "-1s", "AUCTIOND_MAX_WORKERS": "4", "AUCTIOND_CONTRACT_ADDR": "escrow1contract"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := LoadConfigFrom(tt.vars)
			check.Error(t, err)
			check.True(t, cfg == nil)
		})
	}
}
