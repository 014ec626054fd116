package cmd

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/rajtan/qtoggleserver"
	"github.com/rajtan/qtoggleserver/cmd/qtoggle/globals"
	"github.com/rajtan/qtoggleserver/pkg/constants"
	"github.com/rajtan/qtoggleserver/pkg/logging"
)

var waitTimeout time.Duration

// waitCmd represents the wait command.
var waitCmd = &cobra.Command{
	Use:   "wait TYPE [PARAM=VALUE ...]",
	Short: "Wait for one matching server event",
	Long: `Wait registers an expectation for the next event of the given type and
blocks until it arrives, then prints it and exits.

PARAM=VALUE pairs narrow the match: the event must carry every given
parameter with an equal value, extra parameters are ignored. Values are
read as JSON when possible, so value=42 matches the number 42 while
value='"42"' matches the string.

The command exits non-zero when the timeout elapses first, which makes
it usable as a scripted synchronization point:

  qtoggle-flip-relay && qtoggle wait value-change id=relay1`,
	Example: `  qtoggle wait port-update id=p1
  qtoggle wait value-change id=relay1 value=true --timeout 10s
  qtoggle wait full-update`,
	Args: cobra.MinimumNArgs(1),
	RunE: runWait,
}

func init() {
	rootCmd.AddCommand(waitCmd)

	waitCmd.Flags().DurationVar(&waitTimeout, "timeout", constants.DefaultExpectTimeout,
		"How long to wait for the event before giving up")
}

func runWait(cmd *cobra.Command, args []string) error {
	globalFlags, err := globals.Parse(cmd)
	if err != nil {
		return err
	}
	outputFormat, err := resolveFormat(globalFlags.Output)
	if err != nil {
		return err
	}

	params, err := parseParams(args[1:])
	if err != nil {
		return err
	}

	client, err := newClient()
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	// Register before the first poll so the event cannot slip past while
	// the connection is still coming up.
	eventType := qtoggleserver.EventType(args[0])
	handle := client.ExpectEvent(eventType, params, waitTimeout)

	if err := client.StartListening(); err != nil {
		return err
	}
	logging.Debug().
		Str("event_type", args[0]).
		Dur("timeout", waitTimeout).
		Msg("Waiting for event")

	ev, err := client.WaitEvent(cmd.Context(), handle)
	if err != nil {
		return err
	}

	return writeEvent(cmd.OutOrStdout(), outputFormat, ev)
}

// parseParams turns PARAM=VALUE arguments into an event params map.
// Values are decoded as JSON when possible so numbers and booleans
// compare equal to the server's wire values; anything that is not valid
// JSON stays a plain string.
func parseParams(args []string) (map[string]any, error) {
	if len(args) == 0 {
		return nil, nil
	}

	params := make(map[string]any, len(args))
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid parameter %q: expected PARAM=VALUE", arg)
		}

		var decoded any
		if err := json.Unmarshal([]byte(value), &decoded); err == nil {
			params[key] = decoded
		} else {
			params[key] = value
		}
	}
	return params, nil
}
