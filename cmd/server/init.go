package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/prasenjit/go-mockapi/internal/config"
	"github.com/prasenjit/go-mockapi/internal/models"
	"github.com/prasenjit/go-mockapi/internal/scenario"
	"github.com/prasenjit/go-mockapi/internal/storage"
	"github.com/prasenjit/go-mockapi/internal/template"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize go-mockapi with a default configuration and a sample collection",
	Long: `Creates the default configuration file (config.yaml) and data directory.

This command will:
  - Create config.yaml with default settings
  - Create data/ directory for file storage
  - Create data/sample.yaml with example endpoints

Existing files are not overwritten unless --force is used.`,
	RunE: runInit,
}

var (
	initForce bool
	initPath  string
)

func init() {
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "Overwrite existing files")
	initCmd.Flags().StringVarP(&initPath, "path", "p", ".", "Path where to initialize")
}

func runInit(cmd *cobra.Command, args []string) error {
	absPath, err := filepath.Abs(initPath)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}

	configFile := filepath.Join(absPath, "config.yaml")
	dataDir := filepath.Join(absPath, "data")
	sampleFile := filepath.Join(dataDir, "sample.yaml")

	for _, path := range []string{configFile, sampleFile} {
		if _, err := os.Stat(path); err == nil && !initForce {
			return fmt.Errorf("%s already exists. Use --force to overwrite", path)
		}
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dataDir, err)
	}
	fmt.Printf("Created directory: %s\n", dataDir)

	cfg := config.Default()
	cfg.Storage.Path = "./data"

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to generate config: %w", err)
	}

	header := "# go-mockapi configuration\n# Every key can be overridden with MOCKAPI_<SECTION>_<KEY>\n\n"
	if err := os.WriteFile(configFile, append([]byte(header), data...), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	fmt.Printf("Created config file: %s\n", configFile)

	data, err = yaml.Marshal(sampleCollection())
	if err != nil {
		return fmt.Errorf("failed to generate sample collection: %w", err)
	}
	if err := os.WriteFile(sampleFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write sample collection: %w", err)
	}
	fmt.Printf("Created sample collection: %s\n", sampleFile)

	fmt.Println()
	fmt.Println("Initialization complete! You can now start the server with:")
	fmt.Println()
	fmt.Printf("  cd %s\n", absPath)
	fmt.Println("  go-mockapi serve")
	fmt.Println()
	fmt.Println("Then try: curl http://localhost:8080/users")
	fmt.Println()

	return nil
}

// sampleCollection shows templates, arrays, delays, rules and scenarios
func sampleCollection() *models.Collection {
	const id = "sample"

	userTemplate := ""
	for _, s := range template.Samples() {
		if s.Name == "user" {
			userTemplate = s.Template
		}
	}

	presets := scenario.Presets()
	duplicate := presets[2]
	duplicate.Probability = 5

	endpoint := func(method, path, name string) *models.Endpoint {
		return &models.Endpoint{
			ID:           storage.EndpointID(id, method, path),
			CollectionID: id,
			Name:         name,
			Method:       method,
			Path:         path,
			StatusCode:   200,
			Headers:      map[string]string{},
			Delay:        models.DefaultDelay(),
		}
	}

	list := endpoint("GET", "/users", "List users")
	list.ResponseBody = "[" + userTemplate + "]"
	list.Array = &models.ArrayConfig{Min: 3, Max: 10}

	get := endpoint("GET", "/users/{id}", "Get user")
	get.ResponseBody = userTemplate
	get.Headers["X-Request-Id"] = "<<uuid>>"
	get.Delay = models.DelayConfig{Enabled: true, Min: 50, Max: 300}

	create := endpoint("POST", "/users", "Create user")
	create.StatusCode = 201
	create.ResponseBody = `{"id": "<<uuid>>", "createdAt": "<<datetime>>"}`
	create.Validation = models.ValidationConfig{
		Enabled: true,
		Rules: []models.ValidationRule{
			{Field: "email", Kind: models.RuleRequired, Message: "Email is required", Enabled: true},
			{Field: "email", Kind: models.RuleEmail, Message: "Email must be valid", Enabled: true},
			{Field: "name", Kind: models.RuleMinLength, Value: models.NumberValue(2), Message: "Name must be at least 2 characters", Enabled: true},
			{Field: "age", Kind: models.RuleNumeric, Message: "Age must be a number", Enabled: true},
			{
				Field:   "company",
				Kind:    models.RuleConditional,
				Message: "Company is required for business accounts",
				Enabled: true,
				Conditions: []models.Condition{
					{Field: "accountType", Operator: models.OpEquals, Value: models.StringValue("business")},
				},
				ConditionalLogic: models.LogicAnd,
			},
		},
		ErrorScenarios: []models.ErrorScenario{duplicate},
	}

	return &models.Collection{
		ID:          id,
		Name:        "Sample",
		Description: "Example endpoints created by go-mockapi init",
		Endpoints:   []*models.Endpoint{list, get, create},
	}
}
