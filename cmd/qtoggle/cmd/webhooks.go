package cmd

import (
	"os"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"

	"github.com/rajtan/qtoggleserver"
	"github.com/rajtan/qtoggleserver/cmd/qtoggle/globals"
	"github.com/rajtan/qtoggleserver/pkg/errors"
	"github.com/rajtan/qtoggleserver/pkg/logging"
)

var webhooksFile string

// webhooksCmd represents the webhooks command.
var webhooksCmd = &cobra.Command{
	Use:   "webhooks",
	Short: "Manage the server's webhook push configuration",
	Long: `Webhooks reads or updates the configuration the server uses to push
events to an HTTP endpoint of its own accord, instead of being polled.`,
}

// webhooksGetCmd represents the webhooks get command.
var webhooksGetCmd = &cobra.Command{
	Use:     "get",
	Short:   "Show the current webhook configuration",
	Example: `  qtoggle webhooks get -o yaml`,
	Args:    cobra.NoArgs,
	RunE:    runWebhooksGet,
}

// webhooksSetCmd represents the webhooks set command.
var webhooksSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Update the webhook configuration",
	Long: `Set updates the server's webhook configuration from a YAML or JSON file,
from flags, or both; flags win over file values.`,
	Example: `  qtoggle webhooks set --enabled --scheme https --host hub.example.com --port 8443 --path /hooks
  qtoggle webhooks set --file webhooks.yaml
  qtoggle webhooks set --file webhooks.yaml --enabled=false`,
	Args: cobra.NoArgs,
	RunE: runWebhooksSet,
}

func init() {
	rootCmd.AddCommand(webhooksCmd)
	webhooksCmd.AddCommand(webhooksGetCmd)
	webhooksCmd.AddCommand(webhooksSetCmd)

	webhooksSetCmd.Flags().StringVarP(&webhooksFile, "file", "f", "",
		"YAML or JSON file holding the webhook parameters")
	webhooksSetCmd.Flags().Bool("enabled", false, "Enable webhook delivery")
	webhooksSetCmd.Flags().String("scheme", "http", "Delivery URL scheme (http or https)")
	webhooksSetCmd.Flags().String("host", "", "Delivery host")
	webhooksSetCmd.Flags().Int("port", 80, "Delivery port")
	webhooksSetCmd.Flags().String("path", "/", "Delivery path")
	webhooksSetCmd.Flags().Int("timeout", 60, "Per-delivery timeout in seconds")
	webhooksSetCmd.Flags().Int("retries", 0, "Failed delivery retry count")
}

func runWebhooksGet(cmd *cobra.Command, _ []string) error {
	globalFlags, err := globals.Parse(cmd)
	if err != nil {
		return err
	}
	outputFormat, err := resolveFormat(globalFlags.Output)
	if err != nil {
		return err
	}

	client, err := newClient()
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	params, err := client.Webhooks(cmd.Context())
	if err != nil {
		return err
	}

	return writeValue(cmd.OutOrStdout(), outputFormat, params)
}

func runWebhooksSet(cmd *cobra.Command, _ []string) error {
	params, err := loadWebhookParams(cmd)
	if err != nil {
		return err
	}

	client, err := newClient()
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	if err := client.SetWebhooks(cmd.Context(), params); err != nil {
		return err
	}

	logging.Info().
		Bool("enabled", params.Enabled).
		Str("host", params.Host).
		Msg("Webhook configuration updated")
	return nil
}

// loadWebhookParams assembles the webhook parameters from the --file
// payload and the set flags, with flags overriding file values.
func loadWebhookParams(cmd *cobra.Command) (*qtoggleserver.WebhookParams, error) {
	var params qtoggleserver.WebhookParams

	if webhooksFile != "" {
		data, err := os.ReadFile(webhooksFile)
		if err != nil {
			return nil, errors.WrapIO("read", webhooksFile, err)
		}
		// YAML is a superset of JSON, so one decoder covers both.
		if err := yaml.Unmarshal(data, &params); err != nil {
			return nil, errors.WrapParse("yaml", webhooksFile, err)
		}
	}

	flags := cmd.Flags()
	if flags.Changed("enabled") {
		params.Enabled, _ = flags.GetBool("enabled")
	}
	if flags.Changed("scheme") {
		params.Scheme, _ = flags.GetString("scheme")
	}
	if flags.Changed("host") {
		params.Host, _ = flags.GetString("host")
	}
	if flags.Changed("port") {
		params.Port, _ = flags.GetInt("port")
	}
	if flags.Changed("path") {
		params.Path, _ = flags.GetString("path")
	}
	if flags.Changed("timeout") {
		params.Timeout, _ = flags.GetInt("timeout")
	}
	if flags.Changed("retries") {
		params.Retries, _ = flags.GetInt("retries")
	}

	return &params, nil
}
