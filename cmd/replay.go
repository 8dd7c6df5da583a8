package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/AlfredBerg/optionstrip-monitor/internal/logging"
	"github.com/AlfredBerg/optionstrip-monitor/internal/monitor"
	"github.com/AlfredBerg/optionstrip-monitor/internal/page"
	"github.com/AlfredBerg/optionstrip-monitor/internal/timewindow"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var replayPublish bool

var replayCmd = &cobra.Command{
	Use:   "replay <file.html>",
	Short: "Run one scan pass over a saved copy of the page",
	Long: "Run one scan pass over a saved copy of the page. Every row counts as new. " +
		"Envelopes are printed to stdout unless --publish is given.",
	Args: cobra.ExactArgs(1),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		if err := viper.BindPFlag("mqtt.broker", cmd.Flags().Lookup("broker")); err != nil {
			return err
		}
		return viper.BindPFlag("journal.path", cmd.Flags().Lookup("journal"))
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return replay(cmd.Context(), args[0], cmd.OutOrStdout())
	},
}

func init() {
	replayCmd.Flags().BoolVar(&replayPublish, "publish", false, "Publish to the configured broker instead of printing.")
	replayCmd.Flags().StringP("broker", "b", "", "MQTT broker url, e.g. wss://host:8084/mqtt")
	replayCmd.Flags().String("journal", "", "Also append every envelope to this sqlite file.")
}

// printPublisher writes one payload per line.
type printPublisher struct {
	w io.Writer
}

func (p printPublisher) Publish(_ context.Context, topic string, payload []byte) error {
	_, err := fmt.Fprintf(p.w, "%s %s\n", topic, payload)
	return err
}

func replay(ctx context.Context, file string, out io.Writer) error {
	// stdout carries the envelopes
	c, logger, err := setup(logging.ConsoleToStderr())
	if err != nil {
		return err
	}
	defer logger.Sync()
	if ctx == nil {
		ctx = context.Background()
	}

	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()

	table, err := page.LoadSnapshot(f, c.Page.RowSelector, c.Page.TimeSelector)
	if err != nil {
		return err
	}
	filter, err := timewindow.Load(c.Window.Timezone, c.Window.Tolerance, nil)
	if err != nil {
		return err
	}

	var publisher monitor.Publisher = printPublisher{w: out}
	if replayPublish {
		pub, closePublishers, err := buildPublishers(ctx, c, logger, true)
		if err != nil {
			return err
		}
		defer closePublishers()
		publisher = pub
	}

	opts := monitorOptions(c)
	opts.PublishDelay = 0
	mon := monitor.New(&emptyUntilScanned{table: table}, publisher, filter,
		monitor.WithOptions(opts), monitor.WithLogger(logger.Named("monitor")))

	s, err := mon.Begin(ctx)
	if err != nil {
		return err
	}
	defer s.Stop()

	report, err := mon.ScanPass(s)
	if err != nil {
		return err
	}
	counts := map[monitor.RowStatus]int{}
	for _, r := range report.Rows {
		counts[r.Status]++
	}
	logger.Info("replay done", zap.Int("rows", report.Total), zap.Any("outcomes", counts))
	return nil
}

// emptyUntilScanned hides the snapshot's rows from the history suppression
// done when a session begins, so every saved row is treated as new.
type emptyUntilScanned struct {
	table *page.Snapshot
	begun bool
}

func (e *emptyUntilScanned) Rows(ctx context.Context) ([]monitor.Row, error) {
	if !e.begun {
		e.begun = true
		return nil, nil
	}
	return e.table.Rows(ctx)
}
