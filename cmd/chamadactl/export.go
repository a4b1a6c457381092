package main

import (
	"context"
	"fmt"
	"io"

	"github.com/google/renameio"
	"github.com/spf13/cobra"

	"github.com/saturnino-fabrica-de-software/chamada/internal/service"
	"github.com/saturnino-fabrica-de-software/chamada/internal/session"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the attendance table as CSV",
	Long: `Write every attendance event as CSV
(student_id,name,login_date,login_time,logout_date,logout_time).

Examples:
  # Print to stdout
  chamadactl export

  # Write to a file (replaced atomically)
  chamadactl export --out attendance-2024-05.csv`,
	Args: cobra.NoArgs,
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringP("out", "o", "", "Output file (default stdout)")
}

func runExport(cmd *cobra.Command, _ []string) error {
	out, _ := cmd.Flags().GetString("out")

	ctx := context.Background()
	e, err := openEnv(ctx)
	if err != nil {
		return err
	}
	defer e.Close()

	reports := service.NewReportService(e.backend.Students, e.backend.Attendance, session.NewRegistry(session.DefaultTTL))

	if out == "" {
		_, err := reports.ExportAttendanceCSV(ctx, cmd.OutOrStdout())
		return err
	}

	n, err := exportToFile(ctx, reports, out)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %d rows to %s\n", n, out)
	return nil
}

type csvExporter interface {
	ExportAttendanceCSV(ctx context.Context, w io.Writer) (int, error)
}

// exportToFile replaces path only once the whole export succeeded.
func exportToFile(ctx context.Context, reports csvExporter, path string) (int, error) {
	f, err := renameio.TempFile("", path)
	if err != nil {
		return 0, fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() { _ = f.Cleanup() }()

	if err := f.Chmod(0o644); err != nil {
		return 0, err
	}

	n, err := reports.ExportAttendanceCSV(ctx, f)
	if err != nil {
		return 0, err
	}
	if err := f.CloseAtomicallyReplace(); err != nil {
		return 0, fmt.Errorf("failed to write %s: %w", path, err)
	}
	return n, nil
}
