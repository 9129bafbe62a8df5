package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/jwgranville/parrotty/pkg/collectors/tty"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the TTY capture pipeline",
	Long: `Attach the capture probes, consume the ring buffer, and write one
formatted event per capture to the output stream.

When the output is the terminal you are watching, parrotty's own writes
are excluded from capture; diagnostics always go to stderr, never through
the event stream.`,
	RunE: runCapture,
}

func init() {
	runCmd.Flags().String("bpf-object", tty.DefaultConfig().BPFObjectPath, "path to the compiled capture BPF object")
	runCmd.Flags().StringP("output", "o", "-", "event output path (- for stdout)")
	runCmd.Flags().String("nats-url", "", "publish events to this NATS server as well")
	runCmd.Flags().Duration("stats-interval", tty.DefaultConfig().StatsInterval, "how often to log pipeline counters")

	viper.BindPFlag("bpf_object", runCmd.Flags().Lookup("bpf-object"))
	viper.BindPFlag("output", runCmd.Flags().Lookup("output"))
	viper.BindPFlag("nats_url", runCmd.Flags().Lookup("nats-url"))
	viper.BindPFlag("stats_interval", runCmd.Flags().Lookup("stats-interval"))
}

func runCapture(cmd *cobra.Command, args []string) error {
	logger, err := buildLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	out, closeOut, err := openOutput(viper.GetString("output"))
	if err != nil {
		return err
	}
	defer closeOut()

	sinks := []tty.Sink{tty.NewLineSink(out)}
	if url := viper.GetString("nats_url"); url != "" {
		publisher, err := tty.NewNATSPublisher(url, logger)
		if err != nil {
			return err
		}
		sinks = append(sinks, publisher)
	}

	collector, err := tty.NewCollector(collectorConfig(), logger, sinks...)
	if err != nil {
		return err
	}

	// SIGINT and SIGTERM both drain; a repeat signal while draining is
	// absorbed by the collector's idempotent shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := collector.Start(ctx); err != nil {
		return err
	}

	<-collector.Done()
	if err := collector.Stop(); err != nil {
		logger.Error("capture pipeline failed", zap.Error(err))
		return fmt.Errorf("capture pipeline failed: %w", err)
	}
	return nil
}

func buildLogger() (*zap.Logger, error) {
	// Logs go to stderr in both modes; the event stream owns stdout.
	if verbose || viper.GetBool("verbose") {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stderr"}
	return cfg.Build()
}
