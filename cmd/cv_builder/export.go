package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/jonathan/cv-builder/internal/remote"
	"github.com/jonathan/cv-builder/internal/rendering"
	"github.com/jonathan/cv-builder/internal/types"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// Export formats
const (
	formatText  = "text"
	formatLaTeX = "latex"
	formatYAML  = "yaml"
	formatJSON  = "json"
)

var (
	exportID           string
	exportUserID       string
	exportFormat       string
	exportOutputFile   string
	exportTemplateFile string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a stored CV",
	Long:  "Write a stored CV as its review text, as LaTeX, or as the full record in YAML or JSON.",
	RunE:  runExport,
}

func init() {
	exportCmd.Flags().StringVar(&exportID, "id", "", "CV ID (required)")
	exportCmd.Flags().StringVarP(&exportUserID, "user", "u", "", "Owner user ID (required)")
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", formatText, "Output format: text, latex, yaml or json")
	exportCmd.Flags().StringVarP(&exportOutputFile, "out", "o", "", "Output file (default stdout)")
	exportCmd.Flags().StringVarP(&exportTemplateFile, "template", "t", "", "LaTeX template replacing the built-in one")
	_ = exportCmd.MarkFlagRequired("id")
	_ = exportCmd.MarkFlagRequired("user")

	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, _ []string) error {
	switch exportFormat {
	case formatText, formatLaTeX, formatYAML, formatJSON:
	default:
		return fmt.Errorf("unknown --format %q (valid: text, latex, yaml, json)", exportFormat)
	}
	id, err := parseIDFlag("id", exportID)
	if err != nil {
		return err
	}
	userID, err := parseIDFlag("user", exportUserID)
	if err != nil {
		return err
	}

	return withClient(cmd, userID, func(ctx context.Context, client *remote.Client) error {
		rec, err := client.ReadCV(ctx, id)
		if err != nil {
			return err
		}

		if exportOutputFile == "" {
			return writeExport(cmd.OutOrStdout(), rec, exportFormat, exportTemplateFile)
		}

		f, err := os.Create(exportOutputFile)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		if err := writeExport(f, rec, exportFormat, exportTemplateFile); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s\n", exportOutputFile)
		return nil
	})
}

// writeExport writes rec to w in format.
func writeExport(w io.Writer, rec *types.CVRecord, format, templatePath string) error {
	switch format {
	case formatText:
		return rendering.BuildReview(rec.Data).WriteText(w)

	case formatLaTeX:
		tex, err := rendering.RenderLaTeX(rec.Data, templatePath)
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, tex)
		return err

	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(rec); err != nil {
			return fmt.Errorf("failed to encode yaml: %w", err)
		}
		return enc.Close()

	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rec)
	}
	return fmt.Errorf("unknown format %q", format)
}
