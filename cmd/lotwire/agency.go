package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/lotwire/lotwire/client"
	"github.com/lotwire/lotwire/msg"
)

// AgencyCommand submits an agency dataset and awaits its winners
func AgencyCommand() *cobra.Command {
	opts := client.DefaultOptions
	var dataset, format string

	cmd := &cobra.Command{
		Use:   "agency",
		Short: "Submit a bet dataset and await the agency's winners.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(),
				syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			bets, err := readDataset(dataset, format, opts.Agency)
			if err != nil {
				return err
			}

			c := client.NewClient()
			c.Options = opts
			c.Options.Logger = log.Logger
			if err := c.Dial(ctx); err != nil {
				return err
			}
			defer c.Close()

			if err := c.SubmitBets(bets); err != nil {
				return err
			}
			log.Info().Int("bets", len(bets)).Msg("dataset submitted")

			if err := c.Finish(); err != nil {
				return err
			}

			docs, err := c.Winners(ctx)
			if err != nil {
				return err
			}
			log.Info().Int("winners", len(docs)).Msg("lottery results received")
			fmt.Fprintln(cmd.OutOrStdout(), string(msg.AppendWinners(nil, docs)))
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.Addr, "addr",
		envString("LOTWIRE_ADDR", opts.Addr), "server TCP address")
	f.IntVar(&opts.Agency, "agency",
		envInt("LOTWIRE_AGENCY", 1), "agency id")
	f.IntVar(&opts.BatchMax, "batch-max",
		envInt("LOTWIRE_BATCH_MAX", opts.BatchMax), "max bets per batch")
	f.DurationVar(&opts.PollPeriod, "poll-period",
		envDuration("LOTWIRE_POLL_PERIOD", opts.PollPeriod),
		"wait between winner polls")
	f.StringVar(&dataset, "dataset",
		envString("LOTWIRE_DATASET", "agency.csv"), "bet dataset file")
	f.StringVar(&format, "format", "csv", "dataset format: csv or json")
	return cmd
}

// readDataset loads the agency's bets from path in the given format
func readDataset(path, format string, agency int) ([]msg.Bet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	switch strings.ToLower(format) {
	case "csv":
		return client.ReadBets(f, agency)
	case "json":
		return client.ReadBetsJSON(f, agency)
	default:
		return nil, fmt.Errorf("unknown dataset format: %s", format)
	}
}
