package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/wineyard-swc/raices-assistant/internal"
)

// deleteCmd represents the delete command
var deleteCmd = &cobra.Command{
	Use:   "delete <session-id>",
	Short: "Delete a recorded session",
	Long: `Delete a session's in-memory state, its history file and its archived
retrieval context. Deleting a session that does not exist succeeds.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sessionID := args[0]

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		store := internal.NewSessionStore(cfg.HistoryDir, cfg.DedupeOnLoad)
		if err := store.LoadAll(); err != nil {
			return fmt.Errorf("failed to load session history: %w", err)
		}

		if err := store.Delete(sessionID); err != nil {
			return fmt.Errorf("failed to delete session: %w", err)
		}

		contexts := internal.NewContextStore(cfg.ContextPath)
		if err := contexts.Delete(sessionID); err != nil {
			internal.LogWarn("Failed to drop archived context: %v", err)
		}

		fmt.Printf("Deleted session %s\n", sessionID)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(deleteCmd)
}
