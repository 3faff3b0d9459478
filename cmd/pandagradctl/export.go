package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "导出数据",
	}

	var outDir string
	catalog := &cobra.Command{
		Use:   "catalog <intake_id>",
		Short: "导出批次任务目录及版本历史（xlsx）",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap()
			if err != nil {
				return err
			}
			defer a.close()

			buf, filename, err := a.svc.Export.ExportCatalog(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			path := filepath.Join(outDir, filename)
			if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
				return fmt.Errorf("写入文件失败: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
	catalog.Flags().StringVarP(&outDir, "output", "o", ".", "输出目录")

	cmd.AddCommand(catalog)
	return cmd
}
