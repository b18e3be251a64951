package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"detgeom/internal/config"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recorded extraction runs",
	RunE:  runRuns,
}

var runsShowCmd = &cobra.Command{
	Use:   "show [name]",
	Short: "Print the stored bundle of a run",
	Args:  cobra.ExactArgs(1),
	RunE:  runRunsShow,
}

func init() {
	runsCmd.AddCommand(runsShowCmd)
	rootCmd.AddCommand(runsCmd)
}

func runRuns(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	store, err := openRunStore(cmd.Context(), cfg.Store)
	if err != nil {
		return err
	}
	if store == nil {
		return fmt.Errorf("no run store configured")
	}
	defer func() { _ = store.Close() }()
	runs, err := store.ListRuns(cmd.Context())
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tMODEL\tCREATED\tSHAPES\tPLACEMENTS\tCOMPOSITES")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\n",
			r.Name, r.Model, r.CreatedAt.Format("2006-01-02 15:04:05"),
			r.Counts.Shapes, r.Counts.Placements, r.Counts.Composites)
	}
	return w.Flush()
}

func runRunsShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	store, err := openRunStore(cmd.Context(), cfg.Store)
	if err != nil {
		return err
	}
	if store == nil {
		return fmt.Errorf("no run store configured")
	}
	defer func() { _ = store.Close() }()
	run, err := store.GetRun(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(run.Bundle)
}
