package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/saturnino-fabrica-de-software/chamada/internal/archive"
	"github.com/saturnino-fabrica-de-software/chamada/internal/audit"
	"github.com/saturnino-fabrica-de-software/chamada/internal/domain"
	"github.com/saturnino-fabrica-de-software/chamada/internal/face"
	"github.com/saturnino-fabrica-de-software/chamada/internal/matcher"
	"github.com/saturnino-fabrica-de-software/chamada/internal/service"
)

var importCmd = &cobra.Command{
	Use:   "import <dir>",
	Short: "Bulk-enroll students from a capture archive",
	Long: `Enroll every "<student_id>_<name>" folder under dir, using the
images inside as enrollment captures. Students already enrolled, and
faces matching an enrolled student, are reported and skipped.

Examples:
  chamadactl import ./data/student_database
  chamadactl import ./old_captures --dry-run`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)

	importCmd.Flags().Bool("dry-run", false, "Only list the folders that would be imported")
	importCmd.Flags().Bool("no-progress", false, "Disable the progress bar")
}

func runImport(cmd *cobra.Command, args []string) error {
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	noProgress, _ := cmd.Flags().GetBool("no-progress")
	out := cmd.OutOrStdout()

	folders, err := archive.Scan(args[0])
	if err != nil {
		return err
	}
	if len(folders) == 0 {
		fmt.Fprintf(out, "No student folders found in %s\n", args[0])
		return nil
	}

	if dryRun {
		for _, f := range folders {
			fmt.Fprintf(out, "%d\t%s\t%d images\n", f.StudentID, f.Name, len(f.Files))
		}
		return nil
	}

	ctx := context.Background()
	e, err := openEnv(ctx)
	if err != nil {
		return err
	}
	defer e.Close()

	extractor, err := face.NewExtractorFromConfig(ctx, e.cfg)
	if err != nil {
		return fmt.Errorf("failed to create face extractor: %w", err)
	}

	enrollment := service.NewEnrollmentService(
		e.backend.Students,
		e.backend.Embeddings,
		extractor,
		matcher.New(matcher.WithThreshold(e.cfg.MatchThreshold)),
		service.Observers{Logger: e.logger, Audit: audit.NewSlogLogger(e.logger)},
	).WithMaxImages(maxFolderImages(folders))

	var bar *progressbar.ProgressBar
	if !noProgress {
		bar = progressbar.NewOptions(len(folders),
			progressbar.OptionSetDescription("Enrolling students"),
			progressbar.OptionSetWriter(cmd.ErrOrStderr()),
			progressbar.OptionShowCount(),
			progressbar.OptionShowIts(),
			progressbar.OptionSetItsString("students"),
			progressbar.OptionShowElapsedTimeOnFinish(),
			progressbar.OptionSetPredictTime(true),
			progressbar.OptionFullWidth(),
		)
	}

	summary := importFolders(ctx, enrollment, folders, bar)
	if bar != nil {
		_ = bar.Finish()
	}

	summary.print(out)
	if summary.Failed > 0 {
		return fmt.Errorf("%d folders failed", summary.Failed)
	}
	return nil
}

type enroller interface {
	Enroll(ctx context.Context, req service.EnrollRequest) (*service.EnrollResult, error)
}

type importSummary struct {
	Enrolled   int
	Duplicates int
	Rejected   int
	Failed     int
	Problems   []string
}

// importFolders enrolls one folder at a time; the store serialises commits anyway.
func importFolders(ctx context.Context, svc enroller, folders []archive.Folder, bar *progressbar.ProgressBar) importSummary {
	var s importSummary

	for _, f := range folders {
		images, err := readImages(f.Files)
		if err == nil {
			_, err = svc.Enroll(ctx, service.EnrollRequest{
				StudentID: f.StudentID,
				Name:      f.Name,
				Images:    images,
			})
		}

		switch {
		case err == nil:
			s.Enrolled++
		case errors.Is(err, domain.ErrDuplicateFace):
			s.Duplicates++
			s.Problems = append(s.Problems, fmt.Sprintf("%d %s: %v", f.StudentID, f.Name, err))
		case errors.Is(err, domain.ErrNoValidFace), errors.Is(err, domain.ErrValidationFailed):
			s.Rejected++
			s.Problems = append(s.Problems, fmt.Sprintf("%d %s: %v", f.StudentID, f.Name, err))
		default:
			s.Failed++
			s.Problems = append(s.Problems, fmt.Sprintf("%d %s: %v", f.StudentID, f.Name, err))
		}

		if bar != nil {
			_ = bar.Add(1)
		}
	}

	return s
}

func readImages(paths []string) ([][]byte, error) {
	images := make([][]byte, 0, len(paths))
	for _, p := range paths {
		raw, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", p, err)
		}
		images = append(images, raw)
	}
	return images, nil
}

func maxFolderImages(folders []archive.Folder) int {
	n := service.DefaultMaxEnrollImages
	for _, f := range folders {
		if len(f.Files) > n {
			n = len(f.Files)
		}
	}
	return n
}

func (s importSummary) print(w io.Writer) {
	fmt.Fprintf(w, "\nEnrolled: %d  Duplicates: %d  Rejected: %d  Failed: %d\n",
		s.Enrolled, s.Duplicates, s.Rejected, s.Failed)
	for _, p := range s.Problems {
		fmt.Fprintf(w, "  - %s\n", p)
	}
}
