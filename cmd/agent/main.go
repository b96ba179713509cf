package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rajyashhh/mandinex-truck-application/internal/agent"
	"github.com/rajyashhh/mandinex-truck-application/internal/config"
	"github.com/rajyashhh/mandinex-truck-application/internal/domain"
)

var (
	queuePath string
	base      agent.Config
	verbose   bool
)

func main() {
	config.LoadDotEnvUp(8)

	rootCmd := &cobra.Command{
		Use:   "tracking-agent",
		Short: "Driver-side tracking agent",
		Long: `Replays or relays device fixes to the trip tracking API.
Updates that cannot be delivered are kept in a local SQLite queue and
sent oldest first once the API is reachable again.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&queuePath, "queue", envOr("AGENT_QUEUE", "agent_queue.db"), "Path to the offline queue database")
	rootCmd.PersistentFlags().StringVar(&base.BaseURL, "base-url", envOr("AGENT_BASE_URL", "http://localhost:3001"), "Tracking API base URL")
	rootCmd.PersistentFlags().StringVar(&base.ClientToken, "client-token", os.Getenv("AGENT_CLIENT_TOKEN"), "X-Client-Token sent with every request")
	rootCmd.PersistentFlags().StringVar(&base.DeviceType, "device-type", envOr("AGENT_DEVICE_TYPE", "agent"), "X-Device-Type sent with every request")
	rootCmd.PersistentFlags().StringVar(&base.Language, "lang", os.Getenv("AGENT_LANGUAGE"), "X-Language sent with every request")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Development logging")

	queueCmd := &cobra.Command{Use: "queue", Short: "Inspect or drain the offline queue"}
	queueCmd.AddCommand(queueListCmd(), queueFlushCmd(), queueClearCmd())

	rootCmd.AddCommand(startCmd())
	rootCmd.AddCommand(queueCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newLogger() *zap.Logger {
	if verbose {
		l, _ := zap.NewDevelopment()
		return l
	}
	l, _ := zap.NewProduction()
	return l
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// startCmd starts the trip and runs the tracking loop until interrupted.
func startCmd() *cobra.Command {
	var (
		cfg      agent.Config
		track    string
		loop     bool
		battery  float64
		network  string
		suspendT time.Duration
	)

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start a trip and stream fixes from a recorded track",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg.BaseURL, cfg.ClientToken, cfg.DeviceType, cfg.Language = base.BaseURL, base.ClientToken, base.DeviceType, base.Language
			cfg = cfg.WithDefaults()
			if err := cfg.Validate(); err != nil {
				return err
			}
			if network != "" && domain.ParseNetworkType(network) == domain.NetworkUnknown && network != string(domain.NetworkUnknown) {
				return fmt.Errorf("unknown network type %q", network)
			}

			logger := newLogger()
			defer func() { _ = logger.Sync() }()

			source, err := agent.OpenReplay(track, loop)
			if err != nil {
				return err
			}
			queue, err := agent.OpenQueue(queuePath)
			if err != nil {
				return err
			}
			defer queue.Close()

			sensors := agent.StaticSensors{Network: domain.NetworkType(network)}
			if cmd.Flags().Changed("battery") {
				sensors.Battery = &battery
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a := agent.New(cfg, agent.NewClient(cfg), queue, source, sensors, logger)
			if _, err := a.BeginTrip(ctx); err != nil {
				return fmt.Errorf("start trip: %w", err)
			}
			if err := a.Start(ctx); err != nil {
				return err
			}

			select {
			case <-a.Done():
				return nil
			case <-ctx.Done():
			}

			logger.Info("interrupted, saving last location")
			sctx, cancel := context.WithTimeout(context.Background(), suspendT)
			defer cancel()
			if err := a.Suspend(sctx); err != nil {
				logger.Warn("last location not saved", zap.Error(err))
			}
			a.Stop()
			return nil
		},
	}

	cmd.Flags().StringVar(&cfg.PIN, "pin", "", "Ride PIN of the scheduled trip")
	cmd.Flags().StringVar(&cfg.Phone, "phone", "", "Driver phone number")
	cmd.Flags().StringVarP(&track, "track", "t", "", "Recorded track (.csv or .jsonl)")
	cmd.Flags().BoolVar(&loop, "loop", false, "Replay the track forever")
	cmd.Flags().DurationVar(&cfg.Interval, "interval", agent.DefaultInterval, "Time between fixes")
	cmd.Flags().Float64Var(&cfg.DistanceThreshold, "distance", agent.DefaultDistanceThreshold, "Minimum movement in meters before sending")
	cmd.Flags().DurationVar(&cfg.MaxSilence, "max-silence", agent.DefaultMaxSilence, "Send anyway after this long without an update")
	cmd.Flags().Float64Var(&battery, "battery", 0, "Battery level reported with each fix")
	cmd.Flags().StringVar(&network, "network", string(domain.Network4G), "Network type reported with each fix")
	cmd.Flags().DurationVar(&suspendT, "suspend-timeout", 5*time.Second, "Deadline for the last-location call on exit")
	_ = cmd.MarkFlagRequired("pin")
	_ = cmd.MarkFlagRequired("phone")
	_ = cmd.MarkFlagRequired("track")
	return cmd
}

func queueListCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List queued updates, oldest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			queue, err := agent.OpenQueue(queuePath)
			if err != nil {
				return err
			}
			defer queue.Close()

			entries, err := queue.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Println("queue is empty")
				return nil
			}
			fmt.Printf("%-6s %-8s %-20s %-22s %-10s %s\n", "ID", "TRIP", "QUEUED", "POSITION", "ATTEMPTS", "RECORDED")
			for _, e := range entries {
				pos := strconv.FormatFloat(e.Update.Latitude, 'f', 5, 64) + "," + strconv.FormatFloat(e.Update.Longitude, 'f', 5, 64)
				fmt.Printf("%-6d %-8s %-20s %-22s %-10d %s\n",
					e.ID, e.Update.TripID, e.QueuedAt.Format("2006-01-02 15:04:05"), pos, e.Attempts,
					e.Update.RecordedAt.Format(time.RFC3339))
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "Maximum entries to show (0 for all)")
	return cmd
}

func queueFlushCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "flush",
		Short: "Send queued updates now",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := base.WithDefaults()
			logger := newLogger()
			defer func() { _ = logger.Sync() }()

			queue, err := agent.OpenQueue(queuePath)
			if err != nil {
				return err
			}
			defer queue.Close()

			a := agent.New(cfg, agent.NewClient(cfg), queue, nil, nil, logger)
			sent, dropped, err := a.Flush(cmd.Context())
			left, _ := queue.Len(cmd.Context())
			fmt.Printf("sent %d, dropped %d, %d left\n", sent, dropped, left)
			return err
		},
	}
}

func queueClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Discard every queued update",
		RunE: func(cmd *cobra.Command, args []string) error {
			queue, err := agent.OpenQueue(queuePath)
			if err != nil {
				return err
			}
			defer queue.Close()

			n, err := queue.Clear(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("removed %d entries\n", n)
			return nil
		},
	}
}
