package cmd

import (
	"github.com/smazurov/webcamcapture/internal/config"
	"github.com/smazurov/webcamcapture/internal/devices"
	"github.com/smazurov/webcamcapture/internal/logging"
	"github.com/spf13/cobra"
)

// newDevicesCmd creates the devices command. It shares opts with the root so
// the persistent flags land in the same place.
func newDevicesCmd(rt deps, opts *config.Options) *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List capture devices and their IDs",
		Long: `Enumerates cameras first, then microphones, numbering them in one sequence. ` +
			`The IDs are the values accepted by -v and -a.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := loadOptions(cmd, opts); err != nil {
				return err
			}
			logger := logging.GetLogger("devices")

			dir, err := devices.Load(rt.source(opts.InputFormat))
			if err != nil {
				logger.Warn("Device listing incomplete", "format", opts.InputFormat, "error", err)
			}
			logger.Debug("Devices enumerated", "format", opts.InputFormat, "count", len(dir.All()))
			return dir.Render(cmd.OutOrStdout())
		},
	}
}
