package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/ludo-technologies/covscan/internal/version"
)

var (
	// Version information (set via ldflags during build)
	Version = version.Version
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	return execute(newRootCmd(), args, os.Stderr)
}

// execute runs rootCmd with args and maps its error to an exit code
func execute(rootCmd *cobra.Command, args []string, stderr io.Writer) int {
	rootCmd.SetArgs(args)

	if err := rootCmd.Execute(); err != nil {
		// Handle custom exit codes from check command
		var exitErr *CheckExitError
		if errors.As(err, &exitErr) {
			if exitErr.Message != "" {
				fmt.Fprintf(stderr, "Error: %s\n", exitErr.Message)
			}
			// Output was already printed; only the code matters
			return exitErr.Code
		}
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return ExitError
	}
	return ExitOK
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "covscan",
		Short: "covscan - flags poorly covered classes from OpenCover reports",
		Long: `covscan reads OpenCover coverage reports found under a directory, keeps the
classes whose sequence coverage falls inside a threshold band and reports
every source file those classes resolve to.`,
		Version: Version,
		// execute prints errors once, with the exit code mapping
		SilenceErrors: true,
	}

	// Add subcommands
	rootCmd.AddCommand(checkCmd())
	rootCmd.AddCommand(initCmd())
	rootCmd.AddCommand(versionCmd())

	return rootCmd
}

func versionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			verbose, _ := cmd.Flags().GetBool("verbose")
			if verbose {
				fmt.Fprintln(cmd.OutOrStdout(), version.GetFullVersion())
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "covscan version %s\n", version.GetVersion())
			}
		},
	}

	cmd.Flags().BoolP("verbose", "v", false, "Show detailed version information")
	return cmd
}
