package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/agentic-research/viewdef/internal/ingest"
	"github.com/agentic-research/viewdef/internal/linter"
	"github.com/agentic-research/viewdef/internal/model"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var errInvalidDocuments = errors.New("invalid documents")

var validateCmd = &cobra.Command{
	Use:   "validate [file...]",
	Short: "Check syntax, shape, structure and property values of definition files",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		failed := 0
		for _, path := range args {
			if !validateFile(cmd, out, path) {
				failed++
			}
		}
		if failed > 0 {
			return fmt.Errorf("%w: %d of %d", errInvalidDocuments, failed, len(args))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

// validateFile prints every problem of one document and reports whether it
// is valid.
func validateFile(cmd *cobra.Command, out io.Writer, path string) bool {
	red := color.New(color.FgRed)
	yellow := color.New(color.FgYellow)

	data, f, err := readSource(cmd, path)
	if err != nil {
		red.Fprintf(out, "%s: %v\n", path, err)
		return false
	}

	syntax, err := ingest.Diagnose(cmd.Context(), data, path, f)
	if err != nil {
		red.Fprintf(out, "%s: %v\n", path, err)
		return false
	}
	if len(syntax) > 0 {
		for _, se := range syntax {
			red.Fprintf(out, "%s\n", se.Error())
		}
		return false
	}
	if f == ingest.FormatYAML {
		diags, err := linter.Lint(cmd.Context(), data)
		if err != nil {
			red.Fprintf(out, "%s: lint: %v\n", path, err)
			return false
		}
		for _, d := range diags {
			yellow.Fprintf(out, "%s: warning: %s\n", path, d)
		}
	}

	def, err := ingest.Decode(data, f)
	if err != nil {
		red.Fprintf(out, "%s: %v\n", path, err)
		return false
	}
	var shapeErr *ingest.ShapeError
	if err := ingest.CheckShape(def); errors.As(err, &shapeErr) {
		red.Fprintf(out, "%s: malformed definition\n", path)
		for _, is := range shapeErr.Issues {
			fmt.Fprintf(out, "  %s: %s\n", is.Field, is.Description)
		}
		return false
	} else if err != nil {
		red.Fprintf(out, "%s: %v\n", path, err)
		return false
	}

	root, err := model.Load(def, treeOptions()...)
	if err != nil {
		red.Fprintf(out, "%s: %v\n", path, err)
		return false
	}
	valid := true
	if rejected := root.Tree().Rejected(); len(rejected) > 0 {
		valid = false
		yellow.Fprintf(out, "%s: %d parts rejected\n", path, len(rejected))
		for _, rej := range rejected {
			fmt.Fprintf(out, "  %v\n", rej)
		}
	}
	if rep := root.Validate(); rep != nil {
		valid = false
		red.Fprintf(out, "%s: %d validation issues\n", path, rep.Count())
		for _, line := range rep.Lines() {
			fmt.Fprintf(out, "  %s\n", line)
		}
	}
	if valid {
		color.New(color.FgGreen).Fprintf(out, "%s: valid (%s, %d nodes)\n", path, root.ModelType(), root.Tree().Len())
	}
	return valid
}
