package commands

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/cardwise/warden/pkg/types"
)

var (
	askRole    string
	askSession string
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a single question through the full pipeline",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAsk,
}

func init() {
	askCmd.Flags().StringVar(&askRole, "role", string(types.RoleExternal), "caller role: external or internal")
	askCmd.Flags().StringVar(&askSession, "session", "", "session id (generated when empty)")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	a, err := buildApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	text := args[0]
	for _, arg := range args[1:] {
		text += " " + arg
	}

	resp, err := a.Orchestrator.Handle(cmd.Context(), types.Query{
		Text:      text,
		Role:      types.Role(askRole),
		SessionID: askSession,
	})
	if err != nil {
		return err
	}

	printResponse(resp)
	return nil
}

func printResponse(resp types.Response) {
	switch resp.Status {
	case types.StatusBlocked:
		color.Red("[%s]", resp.Status)
	case types.StatusDegraded:
		color.Yellow("[%s]", resp.Status)
	default:
		color.Green("[%s] via %s", resp.Status, resp.Path)
	}
	fmt.Println(resp.Text)
	if len(resp.Evidence) > 0 {
		color.Cyan("\nevidence:")
		for _, ev := range resp.Evidence {
			fmt.Printf("  - %s (%.2f)\n", ev.Chunk.SourceID, ev.Score)
		}
	}
	color.HiBlack("audit_ref: %s", resp.AuditRef)
}
