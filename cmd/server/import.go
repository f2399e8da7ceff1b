package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/prasenjit/go-mockapi/internal/parser"
)

var importCmd = &cobra.Command{
	Use:   "import <openapi-file>",
	Short: "Convert an OpenAPI 3 document into a collection file",
	Long: `Reads an OpenAPI 3 document (YAML or JSON) and writes a collection file.

Request body schemas become validation rules and response schemas become
response templates with generated data. The file is written to the storage
directory unless --out is given; use --out - to print it.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

var (
	importID       string
	importName     string
	importBasePath string
	importOut      string
	importForce    bool
)

func init() {
	f := importCmd.Flags()
	f.StringVar(&importID, "id", "", "Collection ID (default: derived from the document title)")
	f.StringVar(&importName, "name", "", "Collection name (default: the document title)")
	f.StringVar(&importBasePath, "base-path", "", "Prefix for every endpoint path")
	f.StringVarP(&importOut, "out", "o", "", "Output file, or - for stdout")
	f.BoolVarP(&importForce, "force", "f", false, "Overwrite an existing collection file")
}

func runImport(cmd *cobra.Command, args []string) error {
	content, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", args[0], err)
	}

	col, err := parser.NewParser().Parse(content, parser.Options{
		CollectionID: importID,
		BasePath:     importBasePath,
	})
	if err != nil {
		return err
	}
	if importName != "" {
		col.Name = importName
	}

	data, err := yaml.Marshal(col)
	if err != nil {
		return fmt.Errorf("failed to encode collection: %w", err)
	}

	if importOut == "-" {
		_, err := cmd.OutOrStdout().Write(data)
		return err
	}

	out := importOut
	if out == "" {
		dir := viper.GetString("storage.path")
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
		out = filepath.Join(dir, col.ID+".yaml")
	}

	if _, err := os.Stat(out); err == nil && !importForce {
		return fmt.Errorf("%s already exists. Use --force to overwrite", out)
	}

	if err := os.WriteFile(out, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", out, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Imported %d endpoints into %s\n", len(col.Endpoints), out)
	return nil
}
