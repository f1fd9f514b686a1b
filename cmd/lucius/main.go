package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"lucius/cmd/lucius/chat"
	"lucius/internal/app"
	"lucius/internal/config"
	"lucius/internal/dispatch"
	"lucius/internal/llm"
	"lucius/internal/logging"
	"lucius/internal/store"
)

var (
	configPath string
	debug      bool
)

var rootCmd = &cobra.Command{
	Use:   "lucius",
	Short: "Lucius - terminal chat client for local models with tool dispatch",
	Long: `Lucius is a terminal chat client for an Ollama-compatible server.

It watches the model's streamed output for tool directives, executes them
through a local tool server or a Redis task queue, and feeds the results
back to the model until it answers in prose.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runChat()
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the active configuration and its file location",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		path, err := config.Path()
		if err == nil {
			fmt.Printf("config file: %s\n", path)
		}
		fmt.Printf("ollama_url: %s\n", cfg.OllamaURL)
		fmt.Printf("selected_model: %s\n", cfg.SelectedModel)
		fmt.Printf("mcp_server_command: %s\n", cfg.MCPServerCommand)
		fmt.Printf("redis_addr: %s\n", cfg.RedisAddr)
		fmt.Printf("confirm_tool_calls: %v\n", cfg.ConfirmToolCalls)
		fmt.Printf("max_tool_rounds: %d\n", cfg.MaxToolRounds)
		return nil
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default config file",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Default()
		if err := cfg.Save(); err != nil {
			return err
		}
		path, _ := config.Path()
		fmt.Printf("wrote %s\n", path)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default: user config dir)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable file logging")
	rootCmd.AddCommand(configCmd, initCmd)
}

func loadConfig() config.Config {
	if configPath != "" {
		cfg, err := config.LoadFile(configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "config: %v, using defaults\n", err)
		}
		return cfg
	}
	return config.Load()
}

func runChat() error {
	cfg := loadConfig()
	if debug {
		cfg.Logging.Debug = true
	}
	if err := initLogging(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "logging disabled: %v\n", err)
	}
	defer logging.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logging.Boot("lucius starting, endpoint %s", cfg.OllamaURL)

	executor := dispatch.Select(ctx, cfg)
	defer executor.Close()

	state := app.NewState(cfg.OllamaURL, cfg.SelectedModel)
	queue := app.NewQueue()

	worker := &app.Worker{
		State:         state,
		Queue:         queue,
		Client:        llm.NewClient(cfg.OllamaURL),
		Executor:      executor,
		Preamble:      config.LoadPreamble(),
		MaxToolRounds: cfg.MaxToolRounds,
		NewClient:     func(endpoint string) app.ModelClient { return llm.NewClient(endpoint) },
	}
	if cfg.ConfirmToolCalls {
		worker.Executor = &dispatch.ConfirmingExecutor{Next: executor, Gate: worker.ConfirmGate}
	}

	if cfg.SessionDBPath != "" {
		s, err := store.Open(cfg.SessionDBPath)
		if err != nil {
			logging.Boot("transcript store unavailable: %v", err)
		} else {
			defer s.Close()
			worker.Store = s
			if msgs, model, err := s.LoadLatest(ctx); err == nil {
				state.SeedConversation(msgs)
				if cfg.SelectedModel == "" && model != "" {
					queue.Enqueue(app.SelectModel{Name: model})
				}
				logging.Boot("restored transcript with %d entries", len(msgs))
			}
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := worker.Run(gctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	if path, err := config.Path(); err == nil {
		if watcher, err := config.NewWatcher(path); err == nil {
			g.Go(func() error {
				watcher.Run(gctx)
				return nil
			})
			g.Go(func() error {
				for {
					select {
					case <-gctx.Done():
						return nil
					case <-watcher.Changes:
						logging.Boot("config changed on disk, refreshing")
						queue.Enqueue(app.Refresh{})
					}
				}
			})
		}
	}

	p := tea.NewProgram(chat.New(state, queue), tea.WithAltScreen())
	g.Go(func() error {
		<-gctx.Done()
		p.Quit()
		return nil
	})

	_, teaErr := p.Run()
	stop()
	if err := g.Wait(); err != nil && teaErr == nil {
		teaErr = err
	}
	return teaErr
}

// initLogging resolves a default log directory under the user config dir
// when debug is on and none is configured.
func initLogging(cfg config.Config) error {
	dir := cfg.Logging.Dir
	if dir == "" && cfg.Logging.Debug {
		base, err := os.UserConfigDir()
		if err != nil {
			base = "."
		}
		dir = filepath.Join(base, "lucius", "logs")
	}
	return logging.Initialize(dir, cfg.Logging.Debug, cfg.Logging.Level)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
