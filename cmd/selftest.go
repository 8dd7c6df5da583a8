package cmd

import (
	"github.com/AlfredBerg/optionstrip-monitor/internal/timewindow"
	"github.com/spf13/cobra"
)

var selftestCmd = &cobra.Command{
	Use:   "selftest",
	Short: "Check the time window against times around now",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, logger, err := setup()
		if err != nil {
			return err
		}
		defer logger.Sync()

		filter, err := timewindow.Load(c.Window.Timezone, c.Window.Tolerance, nil)
		if err != nil {
			return err
		}
		logSelfTest(logger, filter)
		return nil
	},
}
