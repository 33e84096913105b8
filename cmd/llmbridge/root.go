package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/llmbridge/llmbridge/pkg/logger"
	"github.com/llmbridge/llmbridge/proxy"
)

const rootLongDesc = `Serve a browser chat UI backed by a local inference server.

llmbridge proxies POST /api/chat to the upstream's /chat/completions
endpoint, relaying buffered JSON responses or live SSE streams. The
model is taken from configuration, or auto-detected from the upstream
model list at startup.

Configuration precedence: built-in defaults, then --config TOML file,
then environment (a .env file is loaded if present), then flags.

Examples:
  llmbridge --upstream http://localhost:8000/v1
  llmbridge --listen :5000 --model gpt-oss-120b --static ./static`

const rootShortDesc = "Chat proxy for a local LLM inference server"

type serveCommander struct {
	configPath string
	listenAddr string
	upstream   string
	apiKey     string
	model      string
	staticDir  string
	debug      bool
}

// NewRootCmd builds the llmbridge command.
func NewRootCmd() *cobra.Command {
	cmder := &serveCommander{}

	cmd := &cobra.Command{
		Use:           "llmbridge",
		Short:         rootShortDesc,
		Long:          rootLongDesc,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd)
		},
	}

	cmd.Flags().StringVarP(&cmder.configPath, "config", "c", "", "Path to a TOML config file")
	cmd.Flags().StringVarP(&cmder.listenAddr, "listen", "l", "", "Address to listen on (default \":5000\")")
	cmd.Flags().StringVarP(&cmder.upstream, "upstream", "u", "", "Upstream inference server base URL")
	cmd.Flags().StringVar(&cmder.apiKey, "api-key", "", "API key for the upstream server")
	cmd.Flags().StringVarP(&cmder.model, "model", "m", "", "Model identifier (default: auto-detect)")
	cmd.Flags().StringVar(&cmder.staticDir, "static", "", "Directory to serve the browser UI from")
	cmd.Flags().BoolVar(&cmder.debug, "debug", false, "Enable debug logging")

	return cmd
}

func (c *serveCommander) run(cmd *cobra.Command) error {
	// Best effort, matching the original deployment's dotenv behavior.
	godotenv.Load()

	log := logger.NewLogger(c.debug)
	defer log.Sync()

	config, err := c.buildConfig()
	if err != nil {
		log.Error("invalid configuration", zap.Error(err))
		return err
	}

	p, err := proxy.New(config, log)
	if err != nil {
		log.Error("failed to create proxy", zap.Error(err))
		return err
	}
	defer p.Close()

	// Shut down cleanly on SIGINT/SIGTERM so open streams get a
	// chance to finish.
	done := make(chan os.Signal, 1)
	signal.Notify(done, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-done
		log.Info("shutting down", zap.String("signal", sig.String()))
		if err := p.Shutdown(10 * time.Second); err != nil {
			log.Error("shutdown failed", zap.Error(err))
		}
	}()

	if err := p.Run(); err != nil {
		log.Error("proxy server failed", zap.Error(err))
		return err
	}

	return nil
}

// buildConfig assembles the process configuration: defaults, then the
// optional TOML file, then environment, then flags.
func (c *serveCommander) buildConfig() (proxy.Config, error) {
	config := proxy.DefaultConfig()

	if c.configPath != "" {
		if err := config.LoadFile(c.configPath); err != nil {
			return proxy.Config{}, err
		}
	}
	if err := config.ApplyEnv(); err != nil {
		return proxy.Config{}, err
	}

	if c.listenAddr != "" {
		config.ListenAddr = c.listenAddr
	}
	if c.upstream != "" {
		config.UpstreamURL = c.upstream
	}
	if c.apiKey != "" {
		config.APIKey = c.apiKey
	}
	if c.model != "" {
		config.Model = c.model
	}
	if c.staticDir != "" {
		config.StaticDir = c.staticDir
	}

	return config, nil
}
