package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/wineyard-swc/raices-assistant/internal"
	"github.com/wineyard-swc/raices-assistant/internal/export"
)

var (
	format    string
	outputDir string
	sessionID string
)

// exportCmd represents the export command
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export sessions to file",
	Long: `Export recorded sessions to various formats (jsonl, md, yaml, json).

You can export all sessions or a specific session by ID.
Use 'raices list' to see available session IDs.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}

		exporter, err := export.NewExporter(format)
		if err != nil {
			return err
		}

		ids := store.SessionIDs()
		if sessionID != "" {
			if !store.Exists(sessionID) {
				return fmt.Errorf("session not found: %s", sessionID)
			}
			ids = []string{sessionID}
		}
		if len(ids) == 0 {
			fmt.Println("No sessions to export")
			return nil
		}

		if err := os.MkdirAll(outputDir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}

		exported := 0
		for _, id := range ids {
			session := store.Snapshot(id)
			if session == nil {
				continue
			}

			path := filepath.Join(outputDir, fmt.Sprintf("%s.%s", id, exporter.Extension()))
			if err := writeExport(exporter, session, path); err != nil {
				internal.LogWarn("Failed to export session %s: %v", id, err)
				continue
			}
			exported++
			internal.LogInfo("Exported %s", path)
		}

		fmt.Printf("Exported %d session(s) to %s\n", exported, outputDir)
		return nil
	},
}

func writeExport(exporter export.Exporter, session *internal.Session, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	return exporter.Export(session, f)
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVarP(&format, "format", "f", "json", "Export format (jsonl, md, yaml, json)")
	exportCmd.Flags().StringVarP(&outputDir, "output", "o", "exports", "Output directory")
	exportCmd.Flags().StringVar(&sessionID, "session", "", "Export only the given session ID")
}
