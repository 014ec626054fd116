package cmd

import (
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/rajtan/qtoggleserver"
	"github.com/rajtan/qtoggleserver/cmd/qtoggle/globals"
	"github.com/rajtan/qtoggleserver/pkg/logging"
)

var listenTypes []string

// listenCmd represents the listen command.
var listenCmd = &cobra.Command{
	Use:   "listen",
	Short: "Stream server events to stdout",
	Long: `Listen opens a long-polling connection to the server and prints every
event it pushes, one per line, until interrupted.

Text output shows the event type followed by its parameters; JSON output
emits one object per line, suitable for piping into other tools.`,
	Example: `  qtoggle listen
  qtoggle listen --type value-change --type port-update
  qtoggle listen -o json | jq .params.value`,
	RunE: runListen,
}

func init() {
	rootCmd.AddCommand(listenCmd)

	listenCmd.Flags().StringSliceVarP(&listenTypes, "type", "t", nil,
		"Only stream events of this type (repeatable)")
}

func runListen(cmd *cobra.Command, _ []string) error {
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

	wanted := make(map[qtoggleserver.EventType]bool, len(listenTypes))
	for _, t := range listenTypes {
		wanted[qtoggleserver.EventType(t)] = true
	}

	// Listeners run on the client's dispatch goroutine; the mutex keeps
	// output lines intact if the command ever adds a second writer.
	var outMu sync.Mutex
	out := cmd.OutOrStdout()
	client.AddEventListener(func(ev *qtoggleserver.Event) {
		if len(wanted) > 0 && !wanted[ev.Type] {
			return
		}
		outMu.Lock()
		defer outMu.Unlock()
		if err := writeEvent(out, outputFormat, ev); err != nil {
			logging.Error().Err(err).Msg("Failed to write event")
		}
	})

	client.AddSyncCallback(func(err error, retryIn time.Duration) {
		if err != nil {
			logging.Warn().
				Err(err).
				Dur("retry_in", retryIn).
				Msg("Listen cycle failed, reconnecting")
		}
	})

	if err := client.StartListening(); err != nil {
		return err
	}
	logging.Info().
		Str("session_id", client.SessionID()).
		Msg("Listening for events, press Ctrl+C to stop")

	<-cmd.Context().Done()

	client.StopListening()
	logging.Debug().Msg("Listen command shutting down")
	return nil
}
