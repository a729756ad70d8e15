package cmd

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var showLimit int

var (
	// Styles for show command
	sessionHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("212")).
				Padding(0, 1).
				MarginBottom(1)

	sessionMetaStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("243")).
				MarginBottom(1)

	queryStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")).
			Bold(true).
			Padding(0, 1)

	responseStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("135")).
			Bold(true).
			Padding(0, 1)

	turnContentStyle = lipgloss.NewStyle().
				Padding(0, 2).
				MarginBottom(1)

	timestampStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true)
)

// showCmd represents the show command
var showCmd = &cobra.Command{
	Use:   "show <session-id>",
	Short: "Show turns for a specific session",
	Long:  `Display the recorded turns of one assistant session.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sessionID := args[0]

		store, err := openStore()
		if err != nil {
			return err
		}

		session := store.Snapshot(sessionID)
		if session == nil {
			return fmt.Errorf("session not found: %s", sessionID)
		}

		fmt.Println(render(sessionHeaderStyle, "Sesión "+session.ID))
		fmt.Println(render(sessionMetaStyle, fmt.Sprintf("%d turno(s)", session.TurnCount())))

		turns := session.Turns
		if showLimit > 0 && len(turns) > showLimit {
			turns = turns[len(turns)-showLimit:]
			fmt.Println(render(sessionMetaStyle, fmt.Sprintf("(showing last %d)", showLimit)))
		}

		for _, turn := range turns {
			if turn.Timestamp != "" {
				fmt.Println(render(timestampStyle, turn.Timestamp))
			}
			fmt.Println(render(queryStyle, "Pregunta:"))
			fmt.Println(render(turnContentStyle, turn.Query))
			fmt.Println(render(responseStyle, "Respuesta:"))
			fmt.Println(render(turnContentStyle, turn.Response))
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(showCmd)
	showCmd.Flags().IntVar(&showLimit, "limit", 0, "Only show the last N turns")
}
