package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/agentic-research/viewdef/internal/designer"
	"github.com/agentic-research/viewdef/internal/store"
	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	putAllowInvalid bool
	putForce        bool
	getFormat       string
)

var storeCmd = &cobra.Command{
	Use:   "store",
	Short: "Manage documents in the configured store",
}

var storePutCmd = &cobra.Command{
	Use:   "put [file] [name]",
	Short: "Validate a definition file and store it (name defaults to the file name)",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		def, err := readDefinition(cmd, args[0])
		if err != nil {
			return err
		}
		name := strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
		if len(args) == 2 {
			name = args[1]
		}

		return withStore(func(st store.Store) error {
			opts := []designer.Option{designer.WithLogger(log)}
			if putAllowInvalid {
				opts = append(opts, designer.AllowInvalid())
			}
			s, err := designer.FromDefinition(cat, st, name, def, opts...)
			if err != nil {
				return err
			}
			defer s.Close()

			save := s.Save
			if putForce {
				save = s.ForceSave
			}
			info, err := save(cmd.Context())
			if err != nil {
				return err
			}
			color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(), "stored %s revision %s (%s)\n",
				info.Name, info.Revision, humanize.Bytes(uint64(info.Size)))
			return nil
		})
	},
}

var storeGetCmd = &cobra.Command{
	Use:   "get [name]",
	Short: "Print a stored document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(st store.Store) error {
			def, _, err := st.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return writeDefinition(cmd.OutOrStdout(), def, getFormat)
		})
	},
}

var storeListCmd = &cobra.Command{
	Use:     "ls",
	Aliases: []string{"list"},
	Short:   "List stored documents",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(st store.Store) error {
			infos, err := st.List(cmd.Context())
			if err != nil {
				return err
			}
			tbl := table.NewWriter()
			tbl.SetStyle(table.StyleLight)
			tbl.Style().Options.DrawBorder = false
			tbl.Style().Options.SeparateColumns = false
			tbl.AppendHeader(table.Row{"Name", "Revision", "Format", "Size", "Updated"})
			for _, info := range infos {
				tbl.AppendRow(table.Row{
					info.Name,
					shortRevision(info.Revision),
					info.Format,
					humanize.Bytes(uint64(info.Size)),
					humanize.Time(info.UpdatedAt),
				})
			}
			tbl.AppendFooter(table.Row{fmt.Sprintf("Total: %d", len(infos))})
			_, err = fmt.Fprintln(cmd.OutOrStdout(), tbl.Render())
			return err
		})
	},
}

var storeRemoveCmd = &cobra.Command{
	Use:     "rm [name...]",
	Aliases: []string{"delete"},
	Short:   "Delete stored documents",
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(st store.Store) error {
			for _, name := range args {
				if err := st.Delete(cmd.Context(), name); err != nil {
					return err
				}
				color.New(color.FgYellow).Fprintf(cmd.OutOrStdout(), "deleted %s\n", name)
			}
			return nil
		})
	},
}

func init() {
	storePutCmd.Flags().BoolVar(&putAllowInvalid, "allow-invalid", false, "Store documents that fail validation")
	storePutCmd.Flags().BoolVar(&putForce, "force", false, "Overwrite even if the stored document changed")
	storeGetCmd.Flags().StringVarP(&getFormat, "format", "f", "", "Output format: json or yaml (default definition.format)")

	storeCmd.AddCommand(storePutCmd, storeGetCmd, storeListCmd, storeRemoveCmd)
	rootCmd.AddCommand(storeCmd)
}

func withStore(fn func(store.Store) error) error {
	st, err := store.Open(cfg.StoreConfig(), store.WithLogger(log))
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }() // safe to ignore
	return fn(st)
}

func shortRevision(rev string) string {
	if len(rev) > 8 {
		return rev[:8]
	}
	return rev
}
