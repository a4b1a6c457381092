package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/saturnino-fabrica-de-software/chamada/internal/domain"
)

var studentsCmd = &cobra.Command{
	Use:   "students",
	Short: "List registered students",
	Args:  cobra.NoArgs,
	RunE:  runStudents,
}

func init() {
	rootCmd.AddCommand(studentsCmd)
}

func runStudents(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()
	e, err := openEnv(ctx)
	if err != nil {
		return err
	}
	defer e.Close()

	students, err := e.backend.Students.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list students: %w", err)
	}

	return printStudents(cmd.OutOrStdout(), students)
}

func printStudents(w io.Writer, students []domain.Student) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tCOURSE\tSECTION\tROOM\tENROLLED")
	for _, s := range students {
		enrolled := ""
		if !s.CreatedAt.IsZero() {
			enrolled = s.CreatedAt.Local().Format(time.DateTime)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n", s.ID, s.Name, s.Course, s.Section, s.Room, enrolled)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "\n%d students\n", len(students))
	return err
}
