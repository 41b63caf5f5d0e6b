package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"kifu_editor/internal/kifu"
)

var (
	// Global flags
	envFile string
)

// rootCmd is the root command for kifu-editor.
var rootCmd = &cobra.Command{
	Use:     "kifu-editor",
	Version: "dev",
	Short:   "Shogi record editor with branch support",
	Long: `kifu-editor keeps shogi game records as trees of variations.

It serves editing sessions over HTTP, websocket and gRPC, and can render
or export a record from a JSON kifu file.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env", ".env", "Path to the env config file")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(rowsCmd)
	rootCmd.AddCommand(printCmd)
	rootCmd.AddCommand(streamCmd)
}

func SetVersion(v string) {
	if v == "" {
		return
	}
	rootCmd.Version = v
	rootCmd.SetVersionTemplate("{{.Version}}\n")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// loadTree reads a JSON kifu document from path.
func loadTree(path string) (kifu.MoveTree, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return kifu.MoveTree{}, err
	}
	var doc kifu.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return kifu.MoveTree{}, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return kifu.Import(doc)
}
