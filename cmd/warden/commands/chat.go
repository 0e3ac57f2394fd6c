package commands

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/cardwise/warden/pkg/types"
)

var chatRole string

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Interactive session against the local pipeline",
	Long: `Starts an interactive prompt. All questions share one session id so
the audit trail groups them together. Type "exit" or "quit" to leave.`,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().StringVar(&chatRole, "role", string(types.RoleExternal), "caller role: external or internal")
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, _ []string) error {
	a, err := buildApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	sessionID := uuid.NewString()
	color.Cyan("warden chat (role=%s, session=%s)", chatRole, sessionID)
	fmt.Println(`Type your question, or "exit" to quit.`)

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			break
		}

		resp, err := a.Orchestrator.Handle(cmd.Context(), types.Query{
			Text:      line,
			Role:      types.Role(chatRole),
			SessionID: sessionID,
		})
		if err != nil {
			color.Red("error: %v", err)
			continue
		}
		printResponse(resp)
		fmt.Println()
	}
	return scanner.Err()
}
