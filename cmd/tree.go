package cmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/agentic-research/viewdef/internal/model"
	"github.com/jedib0t/go-pretty/v6/list"
	"github.com/spf13/cobra"
)

var treeIDs bool

var treeCmd = &cobra.Command{
	Use:   "tree [file]",
	Short: "Print the node tree of a definition",
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
		_, err = fmt.Fprintln(cmd.OutOrStdout(), renderTree(root.Node, treeIDs))
		return err
	},
}

func init() {
	treeCmd.Flags().BoolVar(&treeIDs, "ids", false, "Show node ids")
	rootCmd.AddCommand(treeCmd)
}

func renderTree(root *model.Node, withIDs bool) string {
	l := list.NewWriter()
	l.SetStyle(list.StyleConnectedLight)
	var walk func(n *model.Node)
	walk = func(n *model.Node) {
		l.AppendItem(nodeLabel(n, withIDs))
		if !n.HasChildNodes() {
			return
		}
		l.Indent()
		for _, c := range n.Children() {
			walk(c)
		}
		l.UnIndent()
	}
	walk(root)
	return l.Render()
}

func nodeLabel(n *model.Node, withIDs bool) string {
	var b strings.Builder
	b.WriteString(n.Tag())
	if withIDs {
		fmt.Fprintf(&b, " #%s", n.ID())
	}
	props := n.PropertiesHash(false)
	keys := make([]string, 0, len(props))
	for k := range props {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, props[k])
	}
	if n.IsContentUsed() {
		fmt.Fprintf(&b, " %q", fmt.Sprint(n.ContentValue()))
	}
	return b.String()
}
