package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/lotwire/lotwire/server"
	"github.com/lotwire/lotwire/store"
)

// ServeCommand runs the lottery server daemon
func ServeCommand() *cobra.Command {
	opts := server.DefaultOptions
	var betsFile string
	var winning int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the lottery intake server.",
		RunE: func(cmd *cobra.Command, args []string) error {
			// SIGINT/SIGTERM flip the context, teardown happens in Run
			ctx, stop := signal.NotifyContext(context.Background(),
				syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			st, err := store.NewFileStore(betsFile, winning)
			if err != nil {
				return err
			}
			defer st.Close()

			srv := server.NewServer(ctx)
			srv.Options = opts
			srv.Options.Logger = log.Logger
			srv.Options.Store = st

			err = srv.Run()
			log.Info().Msg("server stopped")
			return err
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.Addr, "addr",
		envString("LOTWIRE_ADDR", opts.Addr), "TCP listen address")
	f.IntVar(&opts.Backlog, "backlog",
		envInt("LOTWIRE_BACKLOG", opts.Backlog), "advisory listen backlog")
	f.IntVar(&opts.Agencies, "agencies",
		envInt("LOTWIRE_AGENCIES", opts.Agencies), "agency count gating the draw")
	f.DurationVar(&opts.AcceptTimeout, "accept-timeout",
		envDuration("LOTWIRE_ACCEPT_TIMEOUT", opts.AcceptTimeout),
		"listener deadline between stop checks")
	f.DurationVar(&opts.JoinTimeout, "join-timeout",
		envDuration("LOTWIRE_JOIN_TIMEOUT", opts.JoinTimeout),
		"bounded wait for sessions on shutdown")
	f.StringVar(&betsFile, "bets-file",
		envString("LOTWIRE_BETS_FILE", "bets.csv"), "bet store CSV file")
	f.IntVar(&winning, "winning-number",
		envInt("LOTWIRE_WINNING_NUMBER", 0), "winning number, 0 for the default")
	return cmd
}
