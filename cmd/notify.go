package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/Wiredcraft/ansible-addons/pkg/axon"
	"github.com/Wiredcraft/ansible-addons/pkg/callback"
	"github.com/go-logr/logr"
	"github.com/spf13/cobra"
	"k8s.io/apimachinery/pkg/util/yaml"
)

var notifyCmd = &cobra.Command{
	Use:   "notify <event>",
	Short: "forward a playbook event to axon",
	Long: `Forwards a playbook event to an axon socket. A JSON object holding the
task result (or the per-host summaries for playbook_on_stats) may be
given on stdin. Failing to reach the socket is not an error.`,
	Args: cobra.ExactArgs(1),
	RunE: notify,
}

const (
	flagSource       = "source"
	flagIgnoreErrors = "ignore-errors"
	flagMsg          = "msg"
	flagHandler      = "handler"
	flagAxonAddr     = "axon-addr"
	flagAxonTimeout  = "axon-timeout"
)

func init() {
	notifyCmd.Flags().String(flagSource, "", "host the event originates from")
	notifyCmd.Flags().Bool(flagIgnoreErrors, false, "the failed task ignores errors")
	notifyCmd.Flags().String(flagMsg, "", "message of a runner_on_error event")
	notifyCmd.Flags().String(flagHandler, "", "handler of a playbook_on_notify event")
	notifyCmd.Flags().String(flagAxonAddr, axon.DefaultAddr, "address of the axon socket. Empty disables forwarding")
	notifyCmd.Flags().Duration(flagAxonTimeout, 5*time.Second, "timeout for connecting to the axon socket")
}

func notify(cmd *cobra.Command, args []string) error {
	log := logr.FromContextOrDiscard(cmd.Context())

	source, _ := cmd.Flags().GetString(flagSource)
	ignoreErrors, _ := cmd.Flags().GetBool(flagIgnoreErrors)
	msg, _ := cmd.Flags().GetString(flagMsg)
	handler, _ := cmd.Flags().GetString(flagHandler)
	addr, _ := cmd.Flags().GetString(flagAxonAddr)
	timeout, _ := cmd.Flags().GetDuration(flagAxonTimeout)

	result, err := readResult(cmd.InOrStdin())
	if err != nil {
		return err
	}

	var sender axon.Sender = axon.Noop{}
	if addr != "" {
		c, err := axon.Dial(cmd.Context(), addr, timeout)
		if err != nil {
			log.Error(err, "playbook callback can not reach axon, dropping event")
		} else {
			sender = c
		}
	}
	defer sender.Close()

	return callback.NewForwarder(sender, os.Getenv(callback.SpaceEnv)).Dispatch(cmd.Context(), args[0], callback.Input{
		Source:       source,
		IgnoreErrors: ignoreErrors,
		Msg:          msg,
		Handler:      handler,
		Result:       result,
	})
}

// readResult decodes the result object from r. Nothing is read from
// an interactive terminal.
func readResult(r io.Reader) (map[string]any, error) {
	if f, ok := r.(*os.File); ok {
		fi, err := f.Stat()
		if err != nil || fi.Mode()&os.ModeCharDevice != 0 {
			return nil, nil
		}
	}
	var result map[string]any
	if err := yaml.NewYAMLOrJSONDecoder(r, 4096).Decode(&result); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("decoding result: %w", err)
	}
	return result, nil
}
