package cmd

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"github.com/kozaktomas/classroll/internal/database"
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage teacher accounts",
}

var userAddCmd = &cobra.Command{
	Use:   "add <username>",
	Short: "Create or replace a teacher account",
	Long: `Add stores a teacher with a bcrypt-hashed password and the sections the
teacher may take attendance for. An existing account is replaced.

Example:
  classroll user add teacher1 --password secret --sections CS101,MATH200`,
	Args: cobra.ExactArgs(1),
	RunE: runUserAdd,
}

func init() {
	rootCmd.AddCommand(userCmd)
	userCmd.AddCommand(userAddCmd)

	userAddCmd.Flags().String("password", "", "Password (defaults to CLASSROLL_PASSWORD)")
	userAddCmd.Flags().StringSlice("sections", nil, "Comma-separated sections assigned to the teacher")
}

func runUserAdd(cmd *cobra.Command, args []string) error {
	username := args[0]
	password := mustGetString(cmd, "password")
	if password == "" {
		password = os.Getenv("CLASSROLL_PASSWORD")
	}
	if password == "" {
		return errors.New("--password or CLASSROLL_PASSWORD is required")
	}
	sections := mustGetStringSlice(cmd, "sections")

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
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

	users, err := database.GetUserWriter(cmd.Context())
	if err != nil {
		return err
	}
	if err := users.SaveUser(cmd.Context(), &database.StoredUser{
		Username:     username,
		PasswordHash: string(hash),
		Sections:     sections,
		CreatedAt:    time.Now(),
	}); err != nil {
		return err
	}
	fmt.Printf("Saved teacher %s with sections %v\n", username, sections)
	return nil
}
