package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/wineyard-swc/raices-assistant/internal"
)

var listenAddr string

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Start the assistant's HTTP API.

Endpoints:
  POST   /chat                        Generate requirements for a query
  GET    /chat/history/{session_id}   Read a session's turns
  DELETE /chat/history/{session_id}   Delete a session
  POST   /generate-epics              Generate epics from requirements
  POST   /generate-user-stories       Generate user stories from epics
  POST   /knowledge/add               Index content into the knowledge base
  POST   /knowledge/learn-from-response  Index a recorded answer into the knowledge base`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if listenAddr != "" {
			cfg.ListenAddr = listenAddr
		}
		if cfg.APIKey == "" {
			return fmt.Errorf("no API key configured (set GEMINI_API_KEY or api_key in %s)", configPath)
		}

		assistant, err := internal.NewAssistant(cfg, nil)
		if err != nil {
			return fmt.Errorf("failed to initialize assistant: %w", err)
		}
		defer func() { _ = assistant.Close() }()

		server := internal.NewServer(assistant)
		return server.ListenAndServe(cfg.ListenAddr)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&listenAddr, "listen", "", "HTTP listen address (overrides config)")
}
