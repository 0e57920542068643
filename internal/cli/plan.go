package cli

import (
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shaiso/Seqflow/internal/engine"
)

// planStep — строка вывода команды plan.
type planStep struct {
	Order     int      `json:"order"`
	ID        string   `json:"id"`
	Type      string   `json:"type"`
	Module    string   `json:"module,omitempty"`
	Skip      bool     `json:"skip,omitempty"`
	DependsOn []string `json:"depends_on"`
}

func newPlanCmd(a *app) *cobra.Command {
	var (
		designFile string
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "plan <workflow>",
		Short: "Print the execution order of workflow steps",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			reg, err := a.storage(ctx, args[0], designFile)
			if err != nil {
				return err
			}
			_, w, err := a.loadWorkflow(ctx, reg, args[0], designFile)
			if err != nil {
				return err
			}

			plan, err := engine.NewPlan(w)
			if err != nil {
				return err
			}
			steps := planSteps(plan)

			headers := []string{"#", "ID", "TYPE", "MODULE", "SKIP", "DEPENDS ON"}
			rows := make([][]string, len(steps))
			for i, s := range steps {
				rows[i] = []string{
					strconv.Itoa(s.Order),
					s.ID,
					s.Type,
					s.Module,
					strconv.FormatBool(s.Skip),
					strings.Join(s.DependsOn, ","),
				}
			}

			return a.output(cmd, jsonOutput).Print(headers, rows, steps)
		},
	}

	cmd.Flags().StringVar(&designFile, "design", "", "design file overriding the workflow design")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output in JSON format")

	return cmd
}

// planSteps возвращает шаги плана в топологическом порядке.
func planSteps(plan *engine.Plan) []planStep {
	steps := make([]planStep, 0, len(plan.Order))
	for i, node := range plan.Order {
		deps := make([]string, 0, len(node.DependsOn))
		for _, dep := range node.DependsOn {
			deps = append(deps, dep.ID)
		}
		steps = append(steps, planStep{
			Order:     i + 1,
			ID:        node.ID,
			Type:      node.Step.Type.String(),
			Module:    node.Step.ModuleName,
			Skip:      node.Step.Skip,
			DependsOn: deps,
		})
	}
	return steps
}
