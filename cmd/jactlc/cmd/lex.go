package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/cwbudde/go-jactl/internal/lexer"
	"github.com/spf13/cobra"
)

var (
	evalExpr   string
	showPos    bool
	showType   bool
	onlyErrors bool
)

var lexCmd = &cobra.Command{
	Use:   "lex [file]",
	Short: "Tokenize a jactl script and print the resulting tokens",
	Long: `Tokenize (lex) a jactl script and print the resulting token stream.

If no file is provided, reads from stdin. Use -e to tokenize an inline
expression instead.

Examples:
  jactlc lex script.jactl
  jactlc lex -e "x = 1 + 2"
  jactlc lex --show-type --show-pos script.jactl
  jactlc lex --only-errors script.jactl`,
	Args: cobra.MaximumNArgs(1),
	RunE: lexScript,
}

func init() {
	rootCmd.AddCommand(lexCmd)

	lexCmd.Flags().StringVarP(&evalExpr, "eval", "e", "", "tokenize inline code instead of reading from a file/stdin")
	lexCmd.Flags().BoolVar(&showPos, "show-pos", false, "show token positions (line:column)")
	lexCmd.Flags().BoolVar(&showType, "show-type", false, "show token kind names")
	lexCmd.Flags().BoolVar(&onlyErrors, "only-errors", false, "show only illegal tokens")
}

func lexScript(cmd *cobra.Command, args []string) error {
	input, filename, err := readInput(evalExpr, args)
	if err != nil {
		return err
	}

	slog.Debug("tokenizing", "file", filename, "bytes", len(input))

	l := lexer.New(input, lexer.WithSourceName(filename))

	tokenCount := 0
	errorCount := 0
	for {
		tok := l.Next()

		if onlyErrors && tok.Kind != lexer.ILLEGAL {
			if tok.IsEOF() {
				break
			}
			continue
		}

		tokenCount++
		if tok.Kind == lexer.ILLEGAL {
			errorCount++
		}
		printToken(tok)

		if tok.IsEOF() {
			break
		}
	}

	slog.Debug("tokenizing done", "tokens", tokenCount, "errors", errorCount)

	if onlyErrors && errorCount > 0 {
		return fmt.Errorf("found %d illegal token(s)", errorCount)
	}
	return nil
}

func printToken(tok lexer.Token) {
	var output string
	if showType {
		output = fmt.Sprintf("[%-16s]", tok.Kind.String())
	}

	switch {
	case tok.IsEOF():
		output += " EOF"
	case tok.Kind == lexer.ILLEGAL:
		output += fmt.Sprintf(" ILLEGAL: %q", tok.Chars)
	case tok.Chars == "":
		output += fmt.Sprintf(" %s", tok.Kind)
	default:
		output += fmt.Sprintf(" %q", tok.Chars)
	}

	if showPos {
		output += fmt.Sprintf(" @%d:%d", tok.Pos.Line, tok.Pos.Column)
	}
	fmt.Println(output)
}

// readInput resolves the "-e expr | file arg | stdin" input convention
// shared by lex/parse/resolve.
func readInput(eval string, args []string) (input, filename string, err error) {
	switch {
	case eval != "":
		return eval, "<eval>", nil
	case len(args) == 1:
		content, err := os.ReadFile(args[0])
		if err != nil {
			return "", "", fmt.Errorf("failed to read file %s: %w", args[0], err)
		}
		return string(content), args[0], nil
	default:
		content, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(content), "<stdin>", nil
	}
}
