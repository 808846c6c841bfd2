package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/kozaktomas/classroll/internal/attendance"
	"github.com/kozaktomas/classroll/internal/classifier"
	"github.com/kozaktomas/classroll/internal/constants"
	"github.com/kozaktomas/classroll/internal/database"
	"github.com/kozaktomas/classroll/internal/facematch"
	"github.com/kozaktomas/classroll/internal/inference"
)

var sectionCmd = &cobra.Command{
	Use:   "section",
	Short: "Manage enrolled sections",
}

var sectionEnrollCmd = &cobra.Command{
	Use:   "enroll <section>",
	Short: "Embed a folder-per-student dataset as the section corpus",
	Long: `Enroll reads <dataset>/<section>/<student>/* images, embeds the first face
of every image and replaces the stored corpus of the section. Images without a
detectable face are skipped and reported.

Example:
  classroll section enroll CS101 --dataset ./dataset`,
	Args: cobra.ExactArgs(1),
	RunE: runSectionEnroll,
}

var sectionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List enrolled sections",
	Args:  cobra.NoArgs,
	RunE:  runSectionList,
}

var sectionDeleteCmd = &cobra.Command{
	Use:   "delete <section>",
	Short: "Delete a section and its embeddings",
	Args:  cobra.ExactArgs(1),
	RunE:  runSectionDelete,
}

var sectionEvaluateCmd = &cobra.Command{
	Use:   "evaluate [section]",
	Short: "Report train and test accuracy of the section classifier",
	Long: `Evaluate splits the stored corpus of a section into train and test sets,
trains the configured classifier and prints both accuracies. With --synthetic
it runs on a generated corpus of 50 embeddings over 10 students instead.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSectionEvaluate,
}

func init() {
	rootCmd.AddCommand(sectionCmd)
	sectionCmd.AddCommand(sectionEnrollCmd, sectionListCmd, sectionDeleteCmd, sectionEvaluateCmd)

	sectionEnrollCmd.Flags().String("dataset", "dataset", "Dataset root directory")
	sectionEnrollCmd.Flags().Bool("json", false, "Output as JSON")

	sectionListCmd.Flags().Bool("json", false, "Output as JSON")

	sectionEvaluateCmd.Flags().Float64("test-size", constants.DefaultEvalTestSize, "Held-out fraction of the corpus")
	sectionEvaluateCmd.Flags().Int("seed", constants.DefaultEvalSeed, "Shuffle seed")
	sectionEvaluateCmd.Flags().Bool("synthetic", false, "Evaluate on a generated corpus instead of stored embeddings")
}

func runSectionEnroll(cmd *cobra.Command, args []string) error {
	section := args[0]
	datasetDir := mustGetString(cmd, "dataset")
	jsonOutput := mustGetBool(cmd, "json")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	images, err := attendance.ListDataset(datasetDir, section)
	if err != nil {
		return err
	}
	if len(images) == 0 {
		return fmt.Errorf("no images found under %s/%s", datasetDir, section)
	}

	pool, err := connectDatabase(cfg)
	if err != nil {
		return err
	}
	defer pool.Close()
	sections, err := database.GetSectionWriter(context.Background())
	if err != nil {
		return err
	}

	backend, err := inference.NewBackend(cfg.Inference)
	if err != nil {
		return err
	}
	defer backend.Close()

	var bar *progressbar.ProgressBar
	if !jsonOutput {
		fmt.Printf("Enrolling %d images for section %s\n", len(images), section)
		bar = progressbar.NewOptions(len(images),
			progressbar.OptionSetDescription("Embedding faces"),
			progressbar.OptionShowCount(),
			progressbar.OptionShowIts(),
			progressbar.OptionSetItsString("images"),
			progressbar.OptionShowElapsedTimeOnFinish(),
			progressbar.OptionSetPredictTime(true),
			progressbar.OptionFullWidth(),
		)
	}

	enroller := attendance.NewEnroller(backend.Detector, backend.Embedder, sections, nil, cfg.Attendance.FaceSize, nil)
	start := time.Now()
	report, err := enroller.Enroll(cmd.Context(), section, images, func(done, total int) {
		if bar != nil {
			_ = bar.Add(1)
		}
	})
	if bar != nil {
		_ = bar.Finish()
		fmt.Println()
	}
	if err != nil {
		return err
	}

	if jsonOutput {
		return outputJSON(report)
	}
	fmt.Printf("Enrolled %d faces of %d students (version %d) in %s\n",
		report.Enrolled, report.Students, report.Version, time.Since(start).Round(time.Millisecond))
	if report.Skipped > 0 {
		fmt.Printf("Skipped %d images:\n", report.Skipped)
		for student, n := range report.Failures {
			fmt.Printf("  %-24s %d\n", student, n)
		}
	}
	return nil
}

func runSectionList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	pool, err := connectDatabase(cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	sections, err := database.GetSectionReader(cmd.Context())
	if err != nil {
		return err
	}
	list, err := sections.ListSections(cmd.Context())
	if err != nil {
		return err
	}

	if mustGetBool(cmd, "json") {
		return outputJSON(list)
	}
	if len(list) == 0 {
		fmt.Println("No sections enrolled")
		return nil
	}
	fmt.Printf("%-16s %8s %8s %8s  %s\n", "SECTION", "STUDENTS", "SAMPLES", "VERSION", "UPDATED")
	for _, s := range list {
		fmt.Printf("%-16s %8d %8d %8d  %s\n", s.Section, s.Students, s.Samples, s.Version,
			s.UpdatedAt.Local().Format(time.DateTime))
	}
	return nil
}

func runSectionDelete(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	pool, err := connectDatabase(cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	sections, err := database.GetSectionWriter(cmd.Context())
	if err != nil {
		return err
	}
	if err := sections.DeleteSection(cmd.Context(), args[0]); err != nil {
		return err
	}
	fmt.Printf("Deleted section %s\n", args[0])
	return nil
}

// syntheticNoise keeps generated students separable but not trivially so.
const syntheticNoise = 0.35

func runSectionEvaluate(cmd *cobra.Command, args []string) error {
	testSize := mustGetFloat64(cmd, "test-size")
	seed := uint64(mustGetInt(cmd, "seed"))
	synthetic := mustGetBool(cmd, "synthetic")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	opts := classifierOptions(cfg)
	opts.Seed = seed

	var (
		embeddings []facematch.Embedding
		labels     []string
		source     string
	)
	switch {
	case synthetic:
		embeddings, labels = classifier.SyntheticCorpus(50, constants.EmbeddingDim, 10, syntheticNoise, seed)
		source = "synthetic corpus"
	case len(args) == 1:
		pool, err := connectDatabase(cfg)
		if err != nil {
			return err
		}
		defer pool.Close()
		sections, err := database.GetSectionReader(cmd.Context())
		if err != nil {
			return err
		}
		stored, err := sections.GetSection(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if stored == nil {
			return fmt.Errorf("%w: %s", attendance.ErrMissingSectionData, args[0])
		}
		embeddings, labels = stored.Embeddings, stored.Labels
		source = "section " + args[0]
	default:
		return errors.New("a section is required unless --synthetic is set")
	}

	split, err := classifier.TrainTestSplit(embeddings, labels, testSize, seed)
	if err != nil {
		return err
	}
	model, _, err := attendance.Train(split.TrainX, split.TrainY, opts)
	if err != nil {
		return err
	}
	trainAcc, err := classifier.Accuracy(model, split.TrainX, split.TrainY)
	if err != nil {
		return err
	}
	testAcc, err := classifier.Accuracy(model, split.TestX, split.TestY)
	if err != nil {
		return err
	}

	fmt.Printf("Evaluating %s classifier on %s\n", model.Kind(), source)
	fmt.Printf("  Samples:  %d train, %d test, %d students\n", len(split.TrainX), len(split.TestX), len(model.Classes()))
	fmt.Printf("  Train accuracy: %.3f\n", trainAcc)
	fmt.Printf("  Test accuracy:  %.3f\n", testAcc)
	return nil
}
