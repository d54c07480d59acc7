package main

import (
	"context"
	"fmt"
	"time"

	"github.com/aretw0/kvsession"
	"github.com/aretw0/kvsession/internal/presentation/tui"
	"github.com/aretw0/kvsession/pkg/domain"
	"github.com/aretw0/kvsession/pkg/observability"
	"github.com/aretw0/kvsession/pkg/session"
	"github.com/spf13/cobra"
)

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Connect to the store and report the resulting state",
	Long:  `Connects under the configured retry policy, prints the state reached and closes. Exits non-zero unless the store was reached.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		timeout, _ := cmd.Flags().GetDuration("timeout")

		sess, err := kvsession.Open(appConfig.Session,
			session.WithLogger(logger),
			session.WithHooks(observability.LogHooks(logger)),
		)
		if err != nil {
			return err
		}
		defer sess.Close()

		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()

		start := time.Now()
		_, connErr := sess.Connect().Await(ctx)
		state := sess.State()
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%s)\n", appConfig.Session.URL, tui.FormatState(state), time.Since(start).Round(time.Millisecond))

		if state != domain.StateReady {
			if connErr == nil {
				connErr = fmt.Errorf("session is %s", state)
			}
			return fmt.Errorf("ping failed: %w", connErr)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(pingCmd)
	pingCmd.Flags().Duration("timeout", 90*time.Second, "Give up waiting for the connection after this long")
}
