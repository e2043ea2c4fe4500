package cmd

import (
	"bytes"
	"fmt"
	"os"

	"github.com/agentic-research/viewdef/internal/definition"
	"github.com/agentic-research/viewdef/internal/model"
	"github.com/spf13/cobra"
)

var (
	exportFormat string
	exportOutput string
)

var exportCmd = &cobra.Command{
	Use:   "export [file]",
	Short: "Load a definition and write its canonical form, optionally converting between JSON and YAML",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		def, err := readDefinition(cmd, args[0])
		if err != nil {
			return err
		}
		root, err := model.Load(def, treeOptions()...)
		if err != nil {
			return err
		}
		for _, rej := range root.Tree().Rejected() {
			log.Warn().Err(rej).Str("file", args[0]).Msg("dropped from export")
		}

		if exportOutput == "" {
			return writeDefinition(cmd.OutOrStdout(), definition.SerializeRoot(root), exportFormat)
		}
		var buf bytes.Buffer
		if err := writeDefinition(&buf, definition.SerializeRoot(root), exportFormat); err != nil {
			return err
		}
		if err := os.WriteFile(exportOutput, buf.Bytes(), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", exportOutput, err)
		}
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "", "Output format: json or yaml (default definition.format)")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Write to file instead of stdout")
	rootCmd.AddCommand(exportCmd)
}
