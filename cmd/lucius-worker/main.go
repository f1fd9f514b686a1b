// Command lucius-worker consumes queued tasks from Redis, executes them on
// this machine, and publishes results. Run one per execution host.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"lucius/internal/config"
	"lucius/internal/logging"
	"lucius/internal/queue"
)

var (
	redisAddr string
	workers   int
	debug     bool
	logDir    string
)

var rootCmd = &cobra.Command{
	Use:   "lucius-worker",
	Short: "Task queue worker for lucius",
	Long: `lucius-worker blocks on the shared Redis task list, runs each task's
command (locally, over ssh for targeted hosts, or under docker), and
publishes a SUCCESS:/ERROR: prefixed result under the task's result key.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run()
	},
}

func init() {
	rootCmd.Flags().StringVar(&redisAddr, "redis", "", "redis address (default: config, then 127.0.0.1:6379)")
	rootCmd.Flags().IntVar(&workers, "workers", 1, "concurrent task consumers")
	rootCmd.Flags().BoolVar(&debug, "debug", false, "enable file logging")
	rootCmd.Flags().StringVar(&logDir, "log-dir", "logs", "log directory when --debug is set")
}

func run() error {
	if err := logging.Initialize(logDir, debug, "info"); err != nil {
		fmt.Fprintf(os.Stderr, "logging disabled: %v\n", err)
	}
	defer logging.Sync()

	addr := redisAddr
	if addr == "" {
		addr = config.Load().RedisAddr
	}
	if workers < 1 {
		workers = 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < workers; i++ {
		w := queue.NewWorker(addr)
		if err := w.Ping(gctx); err != nil {
			_ = w.Close()
			return fmt.Errorf("redis unreachable at %s: %w", addr, err)
		}
		g.Go(func() error {
			defer w.Close()
			err := w.Run(gctx)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}

	fmt.Printf("lucius-worker: %d worker(s) consuming %s on %s\n", workers, queue.TaskQueueKey, addr)
	return g.Wait()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
