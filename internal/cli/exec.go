package cli

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/shaiso/Seqflow/internal/telemetry"
	"github.com/shaiso/Seqflow/internal/workflow"
)

func newExecCmd(a *app) *cobra.Command {
	var designFile string

	cmd := &cobra.Command{
		Use:   "exec <workflow>",
		Short: "Execute a workflow",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := a.output(cmd, false)

			reg, err := a.storage(ctx, args[0], designFile)
			if err != nil {
				return err
			}
			spec, w, err := a.loadWorkflow(ctx, reg, args[0], designFile)
			if err != nil {
				return err
			}

			promReg := prometheus.NewRegistry()
			metrics := telemetry.NewMetrics(promReg)

			factory, closeBackend, err := a.schedulerFactory(ctx, reg, metrics)
			if err != nil {
				return err
			}
			defer closeBackend()

			exec, err := workflow.New(workflow.Config{
				Workflow:     w,
				Spec:         spec,
				NewScheduler: factory,
				Storage:      reg,
				JobDir:       a.settings.JobDir,
				LogLevel:     a.settings.LogLevel,
				Logger:       a.logger,
			})
			if err != nil {
				return err
			}

			stopStatus := a.serveStatus(promReg, exec)
			defer stopStatus()

			if err := exec.Run(ctx); err != nil {
				return err
			}

			stats := exec.State().Stats()
			out.Success(fmt.Sprintf("Workflow %s completed: %d steps done, %d skipped (job %s, %s)",
				w.Name, stats.CompletedSteps, stats.SkippedSteps, exec.JobID(), exec.JobDir()))
			return nil
		},
	}

	cmd.Flags().StringVar(&designFile, "design", "", "design file overriding the workflow design")

	return cmd
}
