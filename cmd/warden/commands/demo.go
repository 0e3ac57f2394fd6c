package commands

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/cardwise/warden/pkg/types"
)

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Run a scripted set of queries showing each pipeline outcome",
	RunE:  runDemo,
}

func init() {
	rootCmd.AddCommand(demoCmd)
}

type demoQuery struct {
	label string
	role  types.Role
	text  string
}

var demoQueries = []demoQuery{
	{"rewards question", types.RoleExternal, "Will I earn bonus points booking a flight directly with the airline?"},
	{"policy question", types.RoleExternal, "What does purchase protection cover and for how long?"},
	{"blocked input", types.RoleExternal, "How can I bypass the credit limit algorithm?"},
	{"pii redaction", types.RoleExternal, "My credit card number is 4111 1111 1111 1111, do hotel stays earn points?"},
	{"internal ops", types.RoleInternal, "What is the compensation procedure for failed ATM transactions?"},
	{"unclassifiable", types.RoleExternal, "What is the meaning of life?"},
}

func runDemo(cmd *cobra.Command, _ []string) error {
	a, err := buildApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	sessionID := uuid.NewString()
	for _, dq := range demoQueries {
		color.Cyan("=== %s (role=%s) ===", dq.label, dq.role)
		fmt.Printf("Q: %s\n", dq.text)

		resp, err := a.Orchestrator.Handle(cmd.Context(), types.Query{
			Text:      dq.text,
			Role:      dq.role,
			SessionID: sessionID,
		})
		if err != nil {
			color.Red("error: %v", err)
			continue
		}
		printResponse(resp)
		fmt.Println()
	}
	return nil
}
