package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/agentic-research/viewdef/api"
	"github.com/agentic-research/viewdef/internal/ingest"
	"github.com/agentic-research/viewdef/internal/model"
	"github.com/spf13/cobra"
)

// readSource returns the raw document and its format. "-" reads stdin in the
// configured definition format.
func readSource(cmd *cobra.Command, path string) ([]byte, ingest.Format, error) {
	if path == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, "", fmt.Errorf("read stdin: %w", err)
		}
		return data, cfg.Format(), nil
	}
	f, err := ingest.FormatForPath(path)
	if err != nil {
		return nil, "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("read %s: %w", path, err)
	}
	return data, f, nil
}

// readDefinition decodes and shape-checks a document.
func readDefinition(cmd *cobra.Command, path string) (api.Definition, error) {
	data, f, err := readSource(cmd, path)
	if err != nil {
		return nil, err
	}
	def, err := ingest.Decode(data, f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if err := ingest.CheckShape(def); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return def, nil
}

func treeOptions() []model.Option {
	return append(cat.Options(), model.WithLogger(log))
}

// outputFormat resolves the --format flag against the configured default.
func outputFormat(flag string) (ingest.Format, error) {
	if flag == "" {
		return cfg.Format(), nil
	}
	return ingest.ParseFormat(flag)
}

func writeDefinition(w io.Writer, def api.Definition, format string) error {
	f, err := outputFormat(format)
	if err != nil {
		return err
	}
	out, err := ingest.Encode(def, f, cfg.Definition.Indent)
	if err != nil {
		return err
	}
	_, err = w.Write(out)
	return err
}
