package cmd

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/wineyard-swc/raices-assistant/internal"
)

var (
	// Styles
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("62")).
			Padding(0, 1)

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212"))

	idStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("240")).
		Italic(true)

	countStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	dateStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))
)

// styledOutput reports whether stdout is a terminal worth styling.
func styledOutput() bool {
	return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
}

func render(style lipgloss.Style, s string) string {
	if !styledOutput() {
		return s
	}
	return style.Render(s)
}

// openStore loads the recorded sessions without touching the model API.
func openStore() (*internal.SessionStore, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	store := internal.NewSessionStore(cfg.HistoryDir, cfg.DedupeOnLoad)
	if err := store.LoadAll(); err != nil {
		return nil, fmt.Errorf("failed to load session history: %w", err)
	}
	return store, nil
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded sessions",
	Long:  `List all recorded assistant sessions with their turn counts.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}

		ids := store.SessionIDs()
		if len(ids) == 0 {
			fmt.Println(render(headerStyle, "No sessions found"))
			return nil
		}

		fmt.Println(render(headerStyle, fmt.Sprintf("Found %d session(s)", len(ids))))
		fmt.Println()

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		_, _ = fmt.Fprintln(w, render(titleStyle, "ID")+"\t"+render(titleStyle, "Turns")+"\t"+render(titleStyle, "Last activity")+"\t")
		_, _ = fmt.Fprintln(w, strings.Repeat("─", 80))

		for _, id := range ids {
			session := store.Snapshot(id)
			if session == nil {
				continue
			}

			turns := render(countStyle, strconv.Itoa(session.TurnCount()))

			last := "—"
			if n := len(session.Turns); n > 0 {
				last = session.Turns[n-1].Timestamp
			}

			_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t\n", render(idStyle, id), turns, render(dateStyle, last))
		}

		_ = w.Flush()
		fmt.Println()
		fmt.Println(render(idStyle, "Tip: use `raices show <id>` to read a session"))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}
