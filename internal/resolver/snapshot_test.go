package resolver

import (
	"fmt"
	"strings"
	"testing"

	"github.com/cwbudde/go-jactl/internal/ast"
	"github.com/gkampitakis/go-snaps/snaps"
)

// summarizeTypes renders each top-level VarDecl's resolved type, one per
// line, for snapshotting (mirrors the teacher's fixture-snapshot style for
// asserting resolved shape without hand-maintaining expected strings).
func summarizeTypes(body *ast.Block) string {
	var sb strings.Builder
	for _, stmt := range body.Stmts {
		decl, ok := stmt.(*ast.VarDecl)
		if !ok {
			continue
		}
		fmt.Fprintf(&sb, "%s: %s\n", decl.Name, decl.DeclaredType.Kind)
	}
	return sb.String()
}

func TestResolvedTypesSnapshot(t *testing.T) {
	cls, r := resolveSrc(t, `
		var a = 1
		var b = 2L
		var c = a + b
		var d = "x" + a
		var e = 1.5
		var f = true
	`)
	if r.Diagnostics().HasErrors() {
		t.Fatalf("unexpected diagnostics: %s", r.Diagnostics().Error())
	}
	snaps.MatchSnapshot(t, summarizeTypes(mainMethod(cls).Body))
}
