package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/classroll/internal/attendance"
	"github.com/kozaktomas/classroll/internal/inference"
)

var attendCmd = &cobra.Command{
	Use:   "attend <section> <image>",
	Short: "Take attendance for a section from a classroom photo",
	Long: `Attend scans a classroom photo, identifies the enrolled students of the
section and prints the attendance sheet. The sheet is stored for the given
owner and today's date.

Example:
  classroll attend CS101 class.jpg --owner teacher1`,
	Args: cobra.ExactArgs(2),
	RunE: runAttend,
}

func init() {
	rootCmd.AddCommand(attendCmd)

	attendCmd.Flags().String("owner", "cli", "Teacher the sheet is stored for")
	attendCmd.Flags().Bool("json", false, "Output as JSON")
}

// AttendOutput is the JSON output of the attend command
type AttendOutput struct {
	SessionID string              `json:"session_id"`
	Section   string              `json:"section"`
	Date      string              `json:"date"`
	Present   int                 `json:"present"`
	Faces     int                 `json:"faces"`
	Skipped   int                 `json:"skipped_faces"`
	Records   []attendance.Record `json:"records"`
	Duration  string              `json:"duration"`
}

func runAttend(cmd *cobra.Command, args []string) error {
	section, imagePath := args[0], args[1]
	owner := mustGetString(cmd, "owner")
	jsonOutput := mustGetBool(cmd, "json")

	data, err := os.ReadFile(imagePath)
	if err != nil {
		return fmt.Errorf("reading image: %w", err)
	}
	img, err := attendance.DecodeImage(data)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	pool, err := connectDatabase(cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	backend, err := inference.NewBackend(cfg.Inference)
	if err != nil {
		return err
	}
	defer backend.Close()

	svc, err := newService(cfg, newMatcher(cfg, backend, nil), nil)
	if err != nil {
		return err
	}

	if !jsonOutput {
		fmt.Printf("Scanning %s for section %s (%d passes)...\n", imagePath, section, cfg.Attendance.Passes)
	}
	sess, err := svc.Take(cmd.Context(), owner, section, img)
	if err != nil {
		return err
	}

	if jsonOutput {
		return outputJSON(AttendOutput{
			SessionID: sess.ID,
			Section:   section,
			Date:      sess.Sheet.Date,
			Present:   sess.Sheet.Present(),
			Faces:     sess.Boxes,
			Skipped:   sess.Skipped,
			Records:   sess.Records,
			Duration:  sess.Duration.String(),
		})
	}

	fmt.Printf("\n%-5s %-7s %-30s %s\n", "SL", "ROLLNO", "NAME", "STATUS")
	for _, r := range sess.Records {
		fmt.Printf("%-5d %-7s %-30s %s\n", r.SerialNo, r.RollNo, r.Name, r.Status)
	}
	fmt.Printf("\n%d of %d present, %d faces detected", sess.Sheet.Present(), len(sess.Records), sess.Boxes)
	if sess.Skipped > 0 {
		fmt.Printf(", %d skipped", sess.Skipped)
	}
	fmt.Printf(" (%s)\n", sess.Duration.Round(time.Millisecond))
	fmt.Printf("Stored as %s/%s/%s\n", owner, section, sess.Sheet.Date)
	return nil
}
