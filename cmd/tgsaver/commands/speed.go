package commands

import (
	"github.com/gurr-i/tgsaver/pkg/speedtest"
	"github.com/pterm/pterm"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"
)

// NewSpeedCmd creates the network measurement command
func NewSpeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "speed",
		Short: "Measure network throughput",
		Long: `Speed measures latency, download and upload against the closest
measurement server. Useful for telling local bandwidth problems apart
from remote throttling.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ctx = zerolog.Ctx(ctx).With().Str("command", "speed").Logger().WithContext(ctx)

			spinner, _ := pterm.DefaultSpinner.Start("measuring...")
			result, err := speedtest.Run(ctx)
			if err != nil {
				if spinner != nil {
					spinner.Fail()
				}
				return errors.Errorf("measuring throughput: %w", err)
			}
			if spinner != nil {
				spinner.Success()
			}

			data := pterm.TableData{
				{"Server", result.ServerName},
				{"Latency", result.Latency.String()},
				{"Download", pterm.Sprintf("%.2f Mbps", result.DownloadMbps)},
				{"Upload", pterm.Sprintf("%.2f Mbps", result.UploadMbps)},
			}
			return pterm.DefaultTable.WithData(data).Render()
		},
	}
}
