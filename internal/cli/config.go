package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/viper"

	"github.com/jwgranville/parrotty/pkg/collectors/tty"
)

func setDefaults() {
	viper.SetDefault("bpf_object", tty.DefaultConfig().BPFObjectPath)
	viper.SetDefault("output", "-")
	viper.SetDefault("nats_url", "")
	viper.SetDefault("poll_timeout", tty.DefaultConfig().PollTimeout)
	viper.SetDefault("stats_interval", tty.DefaultConfig().StatsInterval)
}

// collectorConfig builds the collector configuration from viper.
func collectorConfig() *tty.Config {
	cfg := tty.DefaultConfig()
	cfg.BPFObjectPath = viper.GetString("bpf_object")
	if d := viper.GetDuration("poll_timeout"); d > 0 {
		cfg.PollTimeout = d
	}
	if d := viper.GetDuration("stats_interval"); d > 0 {
		cfg.StatsInterval = d
	}
	return cfg
}

// openOutput resolves the event output stream. "-" means stdout, anything
// else is opened for append. The returned closer is a no-op for stdout.
func openOutput(path string) (io.Writer, func() error, error) {
	if path == "" || path == "-" {
		return os.Stdout, func() error { return nil }, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open output %q: %w", path, err)
	}
	return f, f.Close, nil
}
