package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/cardwise/warden/internal/audit/sqlstore"
	"github.com/cardwise/warden/pkg/types"
)

var (
	auditDSN     string
	auditQuery   string
	auditSession string
	auditFrom    string
	auditTo      string
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Export audit events from a gateway database",
	Long: `Reads events from a sqlite audit database and prints them as JSON
lines. Exactly one filter is applied: --query, --session, or --from/--to.`,
	RunE: runAudit,
}

func init() {
	auditCmd.Flags().StringVar(&auditDSN, "db", "warden.db", "sqlite dsn of the audit database")
	auditCmd.Flags().StringVar(&auditQuery, "query", "", "filter by query id")
	auditCmd.Flags().StringVar(&auditSession, "session", "", "filter by session id")
	auditCmd.Flags().StringVar(&auditFrom, "from", "", "range start (RFC 3339)")
	auditCmd.Flags().StringVar(&auditTo, "to", "", "range end (RFC 3339)")
	rootCmd.AddCommand(auditCmd)
}

func runAudit(cmd *cobra.Command, _ []string) error {
	store, err := sqlstore.OpenSQLite(auditDSN)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := cmd.Context()
	var events []types.AuditEvent
	switch {
	case auditQuery != "":
		events, err = store.ListByQuery(ctx, auditQuery)
	case auditSession != "":
		events, err = store.ListBySession(ctx, auditSession)
	case auditFrom != "" && auditTo != "":
		from, ferr := time.Parse(time.RFC3339, auditFrom)
		if ferr != nil {
			return fmt.Errorf("parse --from: %w", ferr)
		}
		to, terr := time.Parse(time.RFC3339, auditTo)
		if terr != nil {
			return fmt.Errorf("parse --to: %w", terr)
		}
		events, err = store.ListByTimeRange(ctx, from, to)
	default:
		return fmt.Errorf("one of --query, --session, or --from/--to is required")
	}
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	for _, event := range events {
		if err := enc.Encode(event); err != nil {
			return err
		}
	}
	return nil
}
