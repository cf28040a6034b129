package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/ludo-technologies/covscan/internal/config"
	"github.com/ludo-technologies/covscan/internal/constants"
)

func initCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Generate a covscan configuration file",
		Long: `Generate a documented covscan configuration file with sensible defaults.

By default, creates covscan.yaml in the current directory with full
documentation. Use --interactive for a guided setup wizard.

Examples:
  # Create covscan.yaml in current directory
  covscan init

  # Custom output path
  covscan init --config ci/covscan.yaml

  # Overwrite existing file
  covscan init --force

  # Generate smaller config with essential options only
  covscan init --minimal

  # Interactive setup wizard
  covscan init --interactive
  covscan init -i`,
		RunE: runInit,
	}

	cmd.Flags().StringP("config", "c", constants.ConfigFileName,
		"Output path for the config file")
	cmd.Flags().BoolP("force", "f", false,
		"Overwrite existing config file")
	cmd.Flags().Bool("minimal", false,
		"Generate minimal config with essential options only")
	cmd.Flags().BoolP("interactive", "i", false,
		"Interactive setup wizard")
	cmd.Flags().String("strictness", string(config.StrictnessStandard),
		"Threshold preset: relaxed, standard, strict")

	return cmd
}

// initChoices are the answers that shape the generated template
type initChoices struct {
	strictness config.Strictness
	reportName string
	configPath string
}

func runInit(cmd *cobra.Command, args []string) error {
	// Get flag values from command
	configPath, _ := cmd.Flags().GetString("config")
	force, _ := cmd.Flags().GetBool("force")
	minimal, _ := cmd.Flags().GetBool("minimal")
	interactive, _ := cmd.Flags().GetBool("interactive")
	strictness, _ := cmd.Flags().GetString("strictness")

	choices := initChoices{
		strictness: config.Strictness(strictness),
		reportName: config.DefaultReportName,
		configPath: configPath,
	}
	if _, ok := config.GetStrictnessPresets()[choices.strictness]; !ok {
		return fmt.Errorf("unknown strictness %q (must be relaxed, standard or strict)", strictness)
	}

	// Run interactive setup if requested
	if interactive {
		var err error
		choices, err = runInteractiveSetup(choices)
		if err != nil {
			return err
		}
	}

	// Check if file exists
	if !force {
		if _, err := os.Stat(choices.configPath); err == nil {
			return fmt.Errorf("%s already exists. Use --force to overwrite", choices.configPath)
		}
	}

	// Check if parent directory exists
	dir := filepath.Dir(choices.configPath)
	if dir != "." && dir != "" {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			return fmt.Errorf("directory does not exist: %s", dir)
		}
	}

	// Generate config content
	var content string
	if minimal {
		content = config.GetMinimalConfigTemplate()
	} else {
		content = config.GetFullConfigTemplate(choices.strictness, choices.reportName)
	}

	if err := os.WriteFile(choices.configPath, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	// Print success message with absolute path if possible, otherwise use relative path
	displayPath := choices.configPath
	if absPath, err := filepath.Abs(choices.configPath); err == nil {
		displayPath = absPath
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created %s\n", displayPath)
	fmt.Fprintln(out, "\nRun 'covscan check .' to check your project.")

	return nil
}

func runInteractiveSetup(defaults initChoices) (initChoices, error) {
	fmt.Println()
	fmt.Println("covscan Configuration Setup")
	fmt.Println("===========================")
	fmt.Println()

	// Strictness selection
	strictnessLevels := []struct {
		Label       string
		Description string
		Value       config.Strictness
	}{
		{"Standard (recommended)", "Report classes below 50% coverage", config.StrictnessStandard},
		{"Relaxed", "Report classes below 30% coverage", config.StrictnessRelaxed},
		{"Strict", "Report classes below 80% coverage", config.StrictnessStrict},
	}

	strictnessTemplates := &promptui.SelectTemplates{
		Label:    "{{ . }}",
		Active:   "\U0001F449 {{ .Label | cyan }} - {{ .Description | faint }}",
		Inactive: "   {{ .Label | white }} - {{ .Description | faint }}",
		Selected: "\U00002705 {{ .Label | green }}",
	}

	strictnessPrompt := promptui.Select{
		Label:     "How strict should the check be?",
		Items:     strictnessLevels,
		Templates: strictnessTemplates,
	}

	strictnessIdx, _, err := strictnessPrompt.Run()
	if err != nil {
		return defaults, fmt.Errorf("strictness selection cancelled: %w", err)
	}
	choices := defaults
	choices.strictness = strictnessLevels[strictnessIdx].Value

	fmt.Println()

	// Report name prompt
	reportPrompt := promptui.Prompt{
		Label:    "Coverage report file name",
		Default:  defaults.reportName,
		Validate: validateReportName,
	}

	reportName, err := reportPrompt.Run()
	if err != nil {
		return defaults, fmt.Errorf("report name input cancelled: %w", err)
	}
	if reportName != "" {
		choices.reportName = reportName
	}

	fmt.Println()

	// Output path prompt
	outputPrompt := promptui.Prompt{
		Label:   "Output file path",
		Default: defaults.configPath,
	}

	outputPath, err := outputPrompt.Run()
	if err != nil {
		return defaults, fmt.Errorf("output path input cancelled: %w", err)
	}
	if outputPath != "" {
		choices.configPath = outputPath
	}

	fmt.Println()
	fmt.Printf("Creating %s... ", choices.configPath)

	return choices, nil
}

// validateReportName rejects names that cannot identify a report file
func validateReportName(input string) error {
	if strings.TrimSpace(input) == "" {
		return nil // falls back to the default
	}
	if strings.ContainsAny(input, `/\`) {
		return fmt.Errorf("enter a file name, not a path")
	}
	return nil
}
