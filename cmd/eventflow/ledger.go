package main

import (
	"fmt"
	"io"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"eventflow/internal/domain"
	"eventflow/internal/lock"
	"eventflow/internal/repository/postgres"
	"eventflow/internal/services"
)

var ledgerCmd = &cobra.Command{
	Use:   "ledger",
	Short: "Inspect the per-event registration counters",
}

func init() {
	check := &cobra.Command{
		Use:   "check",
		Short: "Compare registration counters with the registration rows",
		RunE:  runLedgerCheck,
	}
	check.Flags().Bool("repair", false, "reset drifted counters to the number of registrations")
	check.Flags().Bool("all", false, "list every event, not only drifted ones")
	ledgerCmd.AddCommand(check)
}

func runLedgerCheck(cmd *cobra.Command, args []string) error {
	repair, _ := cmd.Flags().GetBool("repair")
	all, _ := cmd.Flags().GetBool("all")

	db, err := openDB(cmd.Context())
	if err != nil {
		return err
	}
	defer db.Close()

	store := postgres.NewStore(db, cfg.LockWait)
	coord := services.NewCoordinator(store, lock.NewLocal(cfg.LockWait), nil, coordinatorOptions())
	reconciler := services.NewLedgerReconciler(store, coord)

	counts, err := reconciler.Check(cmd.Context())
	if err != nil {
		return err
	}
	drifted := renderLedger(os.Stdout, counts, all)

	if !repair || drifted == 0 {
		return nil
	}
	repairs, err := reconciler.Reconcile(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "repaired %d event(s)\n", len(repairs))
	return nil
}

// renderLedger prints the counters as a table and returns how many drifted.
func renderLedger(w io.Writer, counts []domain.LedgerCount, all bool) int {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.AppendHeader(table.Row{"Event", "Capacity", "Recorded", "Actual", "Drift"})
	drifted := 0
	for _, c := range counts {
		if c.Drifted() {
			drifted++
		} else if !all {
			continue
		}
		capacity := fmt.Sprint(c.Capacity)
		if c.Capacity == 0 {
			capacity = "unlimited"
		}
		tw.AppendRow(table.Row{c.EventID, capacity, c.Recorded, c.Actual, c.Recorded - c.Actual})
	}
	tw.AppendFooter(table.Row{"", "", "", "drifted", drifted})
	tw.Render()
	return drifted
}
