package cmd

import (
	"fmt"

	"github.com/agentic-research/viewdef/internal/designer"
	"github.com/agentic-research/viewdef/internal/store"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	newSave   string
	newFormat string
	newList   bool
)

var newCmd = &cobra.Command{
	Use:   "new [type]",
	Short: "Create an empty document of a type with its required parts scaffolded",
	Args: func(cmd *cobra.Command, args []string) error {
		if newList {
			return cobra.NoArgs(cmd, args)
		}
		return cobra.ExactArgs(1)(cmd, args)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if newList {
			for _, t := range cat.DocumentTypes() {
				tpl, _ := cat.Template(t)
				fmt.Fprintf(out, "%-8s %s\n", t, tpl.Name)
			}
			return nil
		}

		st, err := store.Open(cfg.StoreConfig(), store.WithLogger(log))
		if err != nil {
			return err
		}
		defer func() { _ = st.Close() }() // safe to ignore

		name := newSave
		if name == "" {
			name = args[0]
		}
		s, err := designer.Create(cat, st, name, args[0], designer.WithLogger(log), designer.AllowInvalid())
		if err != nil {
			return err
		}
		defer s.Close()

		if newSave == "" {
			return writeDefinition(out, s.Definition(), newFormat)
		}
		info, err := s.Save(cmd.Context())
		if err != nil {
			return err
		}
		color.New(color.FgGreen).Fprintf(out, "created %s (%s) revision %s\n", info.Name, args[0], info.Revision)
		return nil
	},
}

func init() {
	newCmd.Flags().StringVar(&newSave, "save", "", "Save to the store under this name instead of printing")
	newCmd.Flags().StringVarP(&newFormat, "format", "f", "", "Output format: json or yaml (default definition.format)")
	newCmd.Flags().BoolVar(&newList, "list", false, "List the document types")
	rootCmd.AddCommand(newCmd)
}
