package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ssebin/pandagrad-sub000/internal/service"
)

func calendarCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "calendar",
		Short: "学期日历管理",
	}
	cmd.AddCommand(calendarImportCmd())
	cmd.AddCommand(calendarListCmd())
	return cmd
}

func calendarImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file|url>",
		Short: "从 ICS 文件或 URL 导入学期日历",
		Long: `从 ICS 导入学期窗口，事件摘要需包含学年与学期，例如:
  "Academic Year 2023/2024 Semester 1"

示例:
  pandagradctl calendar import ./calendar.ics
  pandagradctl calendar import webcal://example.edu/academic.ics`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap()
			if err != nil {
				return err
			}
			defer a.close()

			src, err := openICS(args[0])
			if err != nil {
				return err
			}
			defer src.Close()

			resp, err := a.svc.Calendar.ImportICS(cmd.Context(), src)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "已导入 %d 个学期窗口\n", resp.Imported)
			for _, s := range resp.Skipped {
				fmt.Fprintf(out, "  跳过: %s\n", s)
			}
			return nil
		},
	}
}

func calendarListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "列出学期日历",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap()
			if err != nil {
				return err
			}
			defer a.close()

			entries, err := a.svc.Calendar.List(cmd.Context())
			if err != nil {
				return err
			}
			for _, e := range entries {
				fmt.Fprintf(cmd.OutOrStdout(), "%s  S%d  %s ~ %s\n", e.AcademicYear, e.SemesterParity, e.StartDate, e.EndDate)
			}
			return nil
		},
	}
}

func openICS(src string) (io.ReadCloser, error) {
	for _, scheme := range []string{"http://", "https://", "webcal://"} {
		if strings.HasPrefix(src, scheme) {
			return service.FetchICSContent(src)
		}
	}
	f, err := os.Open(src)
	if err != nil {
		return nil, fmt.Errorf("打开 ICS 文件失败: %w", err)
	}
	return f, nil
}
