package main

import (
	"encoding/json"

	"github.com/spf13/cobra"
)

func statusCmd() *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "status <student_id> <lineage_id>",
		Short: "推导学生在任务上的状态",
		Long: `推导学生在任务上的当前状态。

加 --all 时忽略 student_id 参数位置，只需 lineage_id，输出该任务上所有学生的状态:
  pandagradctl status --all <lineage_id>`,
		Args: func(cmd *cobra.Command, args []string) error {
			if all {
				return cobra.ExactArgs(1)(cmd, args)
			}
			return cobra.ExactArgs(2)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap()
			if err != nil {
				return err
			}
			defer a.close()

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")

			if all {
				statuses, err := a.svc.Status.ListLineageStatuses(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return enc.Encode(statuses)
			}

			status, err := a.svc.Status.GetStatus(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			return enc.Encode(status)
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "输出任务上所有学生的状态")
	return cmd
}
