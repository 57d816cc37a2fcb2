// -- cmd/platforms.go --
package cmd

import (
	"fmt"
	"io"

	json "github.com/json-iterator/go"
	"github.com/spf13/cobra"

	"github.com/xkilldash9x/crossbrowse/api/schemas"
	"github.com/xkilldash9x/crossbrowse/internal/platform"
)

func newPlatformsCmd() *cobra.Command {
	var filters []string
	cmd := &cobra.Command{
		Use:   "platforms",
		Short: "List the configured platforms and the capabilities sent for each",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configFrom(cmd.Context())
			if err != nil {
				return err
			}
			all, err := platform.Resolve(cfg)
			if err != nil {
				return err
			}
			selected, err := platform.Select(all, filters)
			if err != nil {
				return err
			}
			return printPlatforms(cmd.OutOrStdout(), selected)
		},
	}
	cmd.Flags().StringSliceVarP(&filters, "platform", "p", nil, "only list platforms whose name contains this text (repeatable)")
	return cmd
}

// printPlatforms writes each platform with its capabilities. Capabilities
// never carry credentials.
func printPlatforms(w io.Writer, platforms []schemas.PlatformConfig) error {
	for _, pc := range platforms {
		caps, err := json.MarshalIndent(platform.Capabilities(pc), "  ", "  ")
		if err != nil {
			return fmt.Errorf("rendering capabilities for %s: %w", pc.SessionName, err)
		}
		if _, err := fmt.Fprintf(w, "%s [%s, %d attempt(s)]\n  %s\n", pc.SessionName, pc.Family, pc.Attempts(), caps); err != nil {
			return err
		}
	}
	return nil
}
