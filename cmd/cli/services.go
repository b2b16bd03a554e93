package cli

import (
	"github.com/spf13/cobra"

	"github.com/anstrom/portprowler/internal/services"
)

func newServicesCmd(a *app) *cobra.Command {
	var topOnly bool

	cmd := &cobra.Command{
		Use:   "services",
		Short: "List the well-known service names used in results",
		Long: `List the port to service mapping used to label open ports. Ports
missing from this table are reported as "unknown". The top 20 ports are the
ones probed by --top-ports.`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			entries := services.Entries()
			if topOnly {
				entries = topEntries(entries)
			}
			a.console().DisplayServices(entries)
			return nil
		},
	}
	cmd.Flags().BoolVar(&topOnly, "top", false, "only list the top 20 ports")
	return cmd
}

func topEntries(entries []services.Entry) []services.Entry {
	top := make(map[uint16]bool)
	for _, p := range services.TopPorts() {
		top[p] = true
	}

	var filtered []services.Entry
	for _, e := range entries {
		if top[e.Port] {
			filtered = append(filtered, e)
		}
	}
	return filtered
}
