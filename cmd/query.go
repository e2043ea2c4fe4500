package cmd

import (
	"fmt"

	"github.com/agentic-research/viewdef/internal/definition"
	"github.com/ohler55/ojg/oj"
	"github.com/spf13/cobra"
)

var queryCmd = &cobra.Command{
	Use:   "query [file] [jsonpath]",
	Short: "Evaluate a JSONPath expression against a definition",
	Example: `  viewdef query edit.yaml '$["i:fields"]["i:field"][*].attributes.name'
  viewdef query edit.yaml '$..label'`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		def, err := readDefinition(cmd, args[0])
		if err != nil {
			return err
		}
		results, err := definition.Query(def, args[1])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, r := range results {
			if s, ok := r.(string); ok {
				fmt.Fprintln(out, s)
				continue
			}
			fmt.Fprintln(out, oj.JSON(r, &oj.Options{Sort: true}))
		}
		log.Debug().Str("path", args[1]).Int("results", len(results)).Msg("query evaluated")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(queryCmd)
}
