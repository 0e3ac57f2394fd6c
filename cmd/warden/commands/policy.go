package commands

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/cardwise/warden/internal/policy"
	"github.com/cardwise/warden/pkg/types"
)

var policyCmd = &cobra.Command{
	Use:   "policy",
	Short: "Inspect and publish guardrail policy",
}

var policyShowRole string

var policyShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the active policy as resolved for a role",
	RunE:  runPolicyShow,
}

var policyCheckCmd = &cobra.Command{
	Use:   "check [file]",
	Short: "Validate a policy file without publishing it",
	Args:  cobra.ExactArgs(1),
	RunE:  runPolicyCheck,
}

var policyPublishServer string

var policyPublishCmd = &cobra.Command{
	Use:   "publish [file]",
	Short: "Validate a policy file and publish it to a running gateway",
	Args:  cobra.ExactArgs(1),
	RunE:  runPolicyPublish,
}

func init() {
	policyShowCmd.Flags().StringVar(&policyShowRole, "role", string(types.RoleExternal), "role to resolve the policy for")
	policyPublishCmd.Flags().StringVar(&policyPublishServer, "server", "http://localhost:8080", "gateway base URL")
	policyCmd.AddCommand(policyShowCmd)
	policyCmd.AddCommand(policyCheckCmd)
	policyCmd.AddCommand(policyPublishCmd)
	rootCmd.AddCommand(policyCmd)
}

func runPolicyShow(cmd *cobra.Command, _ []string) error {
	a, err := buildApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	role := types.Role(policyShowRole)
	if !role.Valid() {
		return fmt.Errorf("unknown role %q", policyShowRole)
	}

	snap := a.Policies.Active(role)
	out, err := yaml.Marshal(snap)
	if err != nil {
		return err
	}
	color.Cyan("policy version %d resolved for role %s:", snap.Version, role)
	fmt.Print(string(out))
	return nil
}

func runPolicyCheck(_ *cobra.Command, args []string) error {
	cfg, err := policy.Load(args[0])
	if err != nil {
		color.Red("invalid: %v", err)
		os.Exit(1)
	}
	color.Green("valid: version %d, %d blocked words, %d denied topics",
		cfg.Version, len(cfg.BlockedWords), len(cfg.DeniedTopics))
	return nil
}

func runPolicyPublish(cmd *cobra.Command, args []string) error {
	// Validate locally before touching the gateway.
	cfg, err := policy.Load(args[0])
	if err != nil {
		color.Red("invalid: %v", err)
		os.Exit(1)
	}

	// #nosec G304 -- path comes from the operator's command line.
	raw, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}

	url := strings.TrimRight(policyPublishServer, "/") + "/v1/policy"
	req, err := http.NewRequestWithContext(cmd.Context(), http.MethodPost, url, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/yaml")

	res, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("publish to %s: %w", url, err)
	}
	defer res.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
	if res.StatusCode != http.StatusOK {
		color.Red("gateway rejected policy (%d): %s", res.StatusCode, strings.TrimSpace(string(body)))
		os.Exit(1)
	}
	color.Green("published policy version %d", cfg.Version)
	return nil
}
