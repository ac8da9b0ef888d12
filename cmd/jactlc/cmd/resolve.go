package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/cwbudde/go-jactl/pkg/jactl"
	"github.com/spf13/cobra"
)

var resolveEvalExpr string

var resolveCmd = &cobra.Command{
	Use:   "resolve [file]",
	Short: "Run the full tokenize -> parse -> resolve pipeline",
	Long: `Run a jactl script through the complete compiler front end and report
whether it resolves cleanly.

If no file is provided, reads from stdin. Use -e to resolve inline code.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runResolve,
}

func init() {
	rootCmd.AddCommand(resolveCmd)
	resolveCmd.Flags().StringVarP(&resolveEvalExpr, "eval", "e", "", "resolve inline code instead of reading from a file/stdin")
}

func runResolve(cmd *cobra.Command, args []string) error {
	input, filename, err := readInput(resolveEvalExpr, args)
	if err != nil {
		return err
	}

	verbose, _ := cmd.Flags().GetBool("verbose")

	start := time.Now()
	result, compileErr := jactl.Compile(input, jactl.WithSourceName(filename))
	slog.Debug("pipeline finished", "file", filename, "elapsed", time.Since(start), "diagnostics", len(result.Diagnostics))
	if compileErr != nil {
		fmt.Fprint(os.Stderr, compileErr.Error())
		fmt.Fprintln(os.Stderr)
		return fmt.Errorf("resolve failed with %d error(s)", len(result.Diagnostics))
	}

	if verbose {
		fmt.Printf("%s: %d method(s) resolved cleanly\n", filename, len(result.Class.Methods))
	} else {
		fmt.Printf("%s: OK\n", filename)
	}
	return nil
}
