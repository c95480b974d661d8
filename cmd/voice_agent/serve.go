package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/voice-agent-builder/internal/config"
	"github.com/jonathan/voice-agent-builder/internal/llm"
	"github.com/jonathan/voice-agent-builder/internal/server"
	"github.com/jonathan/voice-agent-builder/internal/server/ratelimit"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Start an HTTP server exposing the build steps over a REST API with
server-sent progress for discovery.

Authentication is enabled when JWT_SECRET is set; tokens are issued by
POST /auth/token against ADMIN_PASSWORD_HASH (see hash-password). Rate
limits are read from RATE_LIMIT_* variables.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port to listen on (default 8080)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	if cmd.Flags().Changed("port") {
		a.cfg.Port = servePort
	}

	ctx := cmd.Context()
	fetcher, err := a.fetcher()
	if err != nil {
		return err
	}
	var client llm.Client
	if a.cfg.APIKey != "" {
		if client, err = a.llmClient(ctx); err != nil {
			return err
		}
	} else {
		a.logger.Warn(config.EnvAPIKey + " not set; process and combine will be unavailable")
	}

	serverCfg := server.Config{
		Port:      a.cfg.Port,
		Runner:    *a.runner(fetcher, client),
		RateLimit: ratelimit.LoadConfig(),
		Logger:    a.logger.WithPrefix("server"),
	}
	if os.Getenv("JWT_SECRET") != "" {
		if serverCfg.JWT, err = config.NewJWTConfig(); err != nil {
			return err
		}
		if serverCfg.Passwords, err = config.NewPasswordConfig(); err != nil {
			return err
		}
	}

	srv, err := server.New(serverCfg)
	if err != nil {
		return err
	}
	a.logger.Info("starting server", "port", a.cfg.Port, "data_dir", a.cfg.DataDir)
	return srv.Start(ctx)
}
