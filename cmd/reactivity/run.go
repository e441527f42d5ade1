package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"github.com/vango-dev/reactivity/internal/scenario"
	"github.com/vango-dev/reactivity/pkg/inspect"
	"github.com/vango-dev/reactivity/pkg/persist"
	"github.com/vango-dev/reactivity/pkg/reactivity"
)

func runCmd(a *app) *cobra.Command {
	var (
		summary bool
		events  int
	)

	cmd := &cobra.Command{
		Use:   "run <file>",
		Short: "Run a scenario and print what each effect saw",
		Long: `Run a scenario file and print one line per step, effect run,
computed evaluation and watcher callback.

Examples:
  reactivity run cart.yaml
  reactivity run cart.yaml --summary
  reactivity run cart.yaml --events 50`,
		Args: scenarioArg,
		RunE: func(cmd *cobra.Command, args []string) error {
			sc, err := scenario.LoadFile(args[0])
			if err != nil {
				return err
			}

			var rec *inspect.Recorder
			var obs []reactivity.Observer
			if events > 0 {
				rec = inspect.NewRecorder(events)
				obs = append(obs, rec)
			}
			e := a.engine(obs...)

			out := cmd.OutOrStdout()
			report, err := scenario.Run(cmd.Context(), e, sc, out)
			if report != nil {
				defer report.Stop()
			}
			if err != nil {
				return err
			}

			if summary {
				printSummary(out, report)
			}
			if rec != nil {
				enc := json.NewEncoder(out)
				for _, ev := range rec.Events(events) {
					if err := enc.Encode(ev); err != nil {
						return err
					}
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&summary, "summary", false, "Print run counts, final state and store usage")
	cmd.Flags().IntVar(&events, "events", 0, "Print the last N runtime events as JSON lines")
	return cmd
}

func printSummary(w io.Writer, r *scenario.Report) {
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  Steps:      %d\n", r.Steps)
	for _, name := range sortedKeys(r.EffectRuns) {
		fmt.Fprintf(w, "  Effect:     %s ran %d times\n", name, r.EffectRuns[name])
	}
	for _, name := range sortedKeys(r.WatchCalls) {
		fmt.Fprintf(w, "  Watch:      %s fired %d times\n", name, r.WatchCalls[name])
	}
	for _, name := range sortedKeys(r.Computed) {
		data, _ := persist.Encode(r.Computed[name])
		fmt.Fprintf(w, "  Computed:   %s = %s\n", name, data)
	}
	state, err := persist.Encode(r.State)
	if err != nil {
		state = []byte(err.Error())
	}
	fmt.Fprintf(w, "  State:      %s\n", state)
	fmt.Fprintf(w, "  Store:      %d targets, %d keys, %d subscriptions\n",
		r.Stats.Records, r.Stats.Keys, r.Stats.Subscriptions)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
