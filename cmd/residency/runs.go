package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/meur/residency/internal/allocation"
	"github.com/meur/residency/internal/models"
)

var allocateCmd = &cobra.Command{
	Use:   "allocate",
	Short: "Allocate interviews from the submitted initial rankings",
	Long: `Allocate interviews. Students are processed by QCA, best first, and each walks
their initial ranking until their interview cap is reached. Allocations from earlier
runs are kept and count toward the caps.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runJob(cmd, (*allocation.Runner).AllocateInterviews)
	},
}

var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Compute final matches from the interview rankings",
	Long: `Compute final matches. Each interview pair is scored by the sum of both sides'
ranks and pairs are accepted lowest score first. The previous result is replaced.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runJob(cmd, (*allocation.Runner).Match)
	},
}

func init() {
	rootCmd.AddCommand(allocateCmd)
	rootCmd.AddCommand(matchCmd)
}

func runJob(cmd *cobra.Command, job func(*allocation.Runner, context.Context) (models.RunSummary, error)) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer log.Sync()

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	runner := allocation.NewRunner(store, limits(cfg), nil, log.Named("allocation"))
	summary, err := job(runner, cmd.Context())
	if err != nil {
		return err
	}

	log.Info("run complete", zap.String("run_id", summary.RunID), zap.Int("created", summary.Created))
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %d created\n", cmd.Name(), summary.Created)
	return nil
}
