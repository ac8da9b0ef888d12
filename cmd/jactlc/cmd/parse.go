package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/cwbudde/go-jactl/internal/ast"
	"github.com/cwbudde/go-jactl/internal/lexer"
	"github.com/cwbudde/go-jactl/internal/parser"
	"github.com/spf13/cobra"
)

var parseExpression bool

var parseCmd = &cobra.Command{
	Use:   "parse [file]",
	Short: "Parse a jactl script and dump its AST",
	Long: `Parse jactl source code and print the resulting AST.

If no file is provided, reads from stdin. Use -e to parse a single
expression via the parser's parseExpression() entry point instead of a
full script.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runParse,
}

func init() {
	rootCmd.AddCommand(parseCmd)
	parseCmd.Flags().BoolVarP(&parseExpression, "expression", "e", false, "parse a single expression instead of a script")
}

func runParse(cmd *cobra.Command, args []string) error {
	var input, filename string
	var err error
	if parseExpression {
		if len(args) == 0 {
			return fmt.Errorf("no expression provided")
		}
		input, filename = args[0], "<expr>"
	} else {
		input, filename, err = readInput("", args)
		if err != nil {
			return err
		}
	}

	l := lexer.New(input, lexer.WithSourceName(filename))
	p := parser.New(l)

	if parseExpression {
		expr := p.ParseExpression()
		if diags := p.Diagnostics(); diags.HasErrors() {
			fmt.Fprint(os.Stderr, diags.Error())
			fmt.Fprintln(os.Stderr)
			return fmt.Errorf("parsing failed with %d error(s)", len(diags.Errors))
		}
		dumpNode(expr, 0)
		return nil
	}

	cls := p.Parse()
	if diags := p.Diagnostics(); diags.HasErrors() {
		fmt.Fprint(os.Stderr, diags.Error())
		fmt.Fprintln(os.Stderr)
		return fmt.Errorf("parsing failed with %d error(s)", len(diags.Errors))
	}
	dumpClass(cls, 0)
	return nil
}

func indent(n int) string { return strings.Repeat("  ", n) }

func dumpClass(cls *ast.ClassDecl, depth int) {
	fmt.Printf("%sClassDecl %s\n", indent(depth), cls.Name)
	for _, f := range cls.Fields {
		fmt.Printf("%sfield %s\n", indent(depth+1), f.Name)
	}
	for _, m := range cls.Methods {
		fmt.Printf("%sfunc %s(%d params)\n", indent(depth+1), m.Name, len(m.Params))
		if m.Body != nil {
			dumpBlock(m.Body, depth+2)
		}
	}
	for _, inner := range cls.Inner {
		dumpClass(inner, depth+1)
	}
}

func dumpBlock(b *ast.Block, depth int) {
	for _, stmt := range b.Stmts {
		dumpNode(stmt, depth)
	}
}

// dumpNode prints a one-line-per-node rendering of n; it is deliberately
// shallow (argument/operand subtrees are summarised, not fully expanded)
// since this command exists to eyeball parser shape, not to serialise.
func dumpNode(n ast.Node, depth int) {
	pad := indent(depth)
	switch v := n.(type) {
	case *ast.Block:
		fmt.Printf("%sBlock (%d stmts)\n", pad, len(v.Stmts))
		dumpBlock(v, depth+1)
	case *ast.ExprStmt:
		fmt.Printf("%sExprStmt\n", pad)
		dumpNode(v.Expr, depth+1)
	case *ast.VarDecl:
		fmt.Printf("%sVarDecl %s\n", pad, v.Name)
		if v.Initializer != nil {
			dumpNode(v.Initializer, depth+1)
		}
	case *ast.If:
		fmt.Printf("%sIf\n", pad)
		dumpNode(v.Cond, depth+1)
		dumpNode(v.Then, depth+1)
		if v.Else != nil {
			dumpNode(v.Else, depth+1)
		}
	case *ast.While:
		fmt.Printf("%sWhile\n", pad)
		dumpNode(v.Cond, depth+1)
		dumpNode(v.Body, depth+1)
	case *ast.Return:
		fmt.Printf("%sReturn\n", pad)
		if v.Value != nil {
			dumpNode(v.Value, depth+1)
		}
	case *ast.ThrowError:
		fmt.Printf("%sThrow\n", pad)
		dumpNode(v.Error, depth+1)
	case *ast.Binary:
		fmt.Printf("%sBinary (%s)\n", pad, v.Operator)
		dumpNode(v.Left, depth+1)
		dumpNode(v.Right, depth+1)
	case *ast.Unary:
		fmt.Printf("%sUnary (%s)\n", pad, v.Operator)
		dumpNode(v.Operand, depth+1)
	case *ast.Literal:
		fmt.Printf("%sLiteral: %v\n", pad, v.Value)
	case *ast.Identifier:
		fmt.Printf("%sIdentifier: %s\n", pad, v.Name)
	case *ast.Call:
		fmt.Printf("%sCall (%d args)\n", pad, len(v.Args))
		dumpNode(v.Callee, depth+1)
	case *ast.MethodCall:
		fmt.Printf("%sMethodCall .%s (%d args)\n", pad, v.Name, len(v.Args))
		dumpNode(v.Receiver, depth+1)
	case *ast.FunDeclStmt:
		fmt.Printf("%sFunDeclStmt %s\n", pad, v.Fun.Name)
		if v.Fun.Body != nil {
			dumpBlock(v.Fun.Body, depth+1)
		}
	default:
		fmt.Printf("%s%T\n", pad, n)
	}
}
