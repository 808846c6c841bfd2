package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// flagValue reads a flag registered in init(). A lookup error means the flag
// name is misspelled or the type is wrong, which is a bug, hence the panic.
func flagValue[T any](get func(string) (T, error), name string) T {
	v, err := get(name)
	if err != nil {
		panic(fmt.Sprintf("flag --%s: %v", name, err))
	}
	return v
}

func mustGetBool(cmd *cobra.Command, name string) bool {
	return flagValue(cmd.Flags().GetBool, name)
}

func mustGetInt(cmd *cobra.Command, name string) int {
	return flagValue(cmd.Flags().GetInt, name)
}

func mustGetString(cmd *cobra.Command, name string) string {
	return flagValue(cmd.Flags().GetString, name)
}

func mustGetFloat64(cmd *cobra.Command, name string) float64 {
	return flagValue(cmd.Flags().GetFloat64, name)
}

func mustGetStringSlice(cmd *cobra.Command, name string) []string {
	return flagValue(cmd.Flags().GetStringSlice, name)
}

// outputJSON prints v indented on stdout for the --json variants of commands.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("write json: %w", err)
	}
	return nil
}
