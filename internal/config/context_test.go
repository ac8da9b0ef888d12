package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cwbudde/go-jactl/internal/types"
)

func TestNewContextDefaults(t *testing.T) {
	ctx := NewContext()
	if !ctx.EvaluateConstExprs {
		t.Errorf("expected EvaluateConstExprs to default true")
	}
	if ctx.MaxScale != 20 {
		t.Errorf("expected default MaxScale 20, got %d", ctx.MaxScale)
	}
	if ctx.ReplMode {
		t.Errorf("expected ReplMode to default false")
	}
}

func TestContextOptionsOverrideDefaults(t *testing.T) {
	ctx := NewContext(WithMaxScale(5), WithReplMode(true), WithJavaPackage("com.example"))
	if ctx.MaxScale != 5 || !ctx.ReplMode || ctx.JavaPackage != "com.example" {
		t.Fatalf("options did not apply: %+v", ctx)
	}
}

func TestNextSyntheticNameIsMonotonicAndUnique(t *testing.T) {
	ctx := NewContext()
	a := ctx.NextSyntheticName("Script")
	b := ctx.NextSyntheticName("Script")
	if a == b {
		t.Fatalf("expected distinct synthetic names, got %q twice", a)
	}
	if a != "Script$1" || b != "Script$2" {
		t.Fatalf("expected increasing names Script$1, Script$2, got %q, %q", a, b)
	}
}

func TestLoadContextFromYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "jactl.yaml")
	yaml := "javaPackage: com.example\nmaxScale: 10\nevaluateConstExprs: false\nreplMode: true\n"
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}
	ctx, err := LoadContext(path)
	if err != nil {
		t.Fatalf("unexpected error loading context: %v", err)
	}
	if ctx.JavaPackage != "com.example" || ctx.MaxScale != 10 || ctx.EvaluateConstExprs || !ctx.ReplMode {
		t.Fatalf("loaded context does not match fixture: %+v", ctx)
	}
}

func TestLoadContextMissingFile(t *testing.T) {
	if _, err := LoadContext(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected an error for a missing config file")
	}
}

func TestMapPackageRegistryRoundTrip(t *testing.T) {
	reg := NewMapPackageRegistry()
	if _, ok := reg.GetPackage("com.example"); ok {
		t.Fatalf("did not expect an unregistered package to resolve")
	}
	desc := types.NewClassDescriptor("Widget")
	reg.AddClass("com.example", "Widget", desc)
	pkg, ok := reg.GetPackage("com.example")
	if !ok {
		t.Fatalf("expected the registered package to resolve")
	}
	got, ok := pkg.GetClass("Widget")
	if !ok || got != desc {
		t.Fatalf("expected GetClass to return the registered descriptor")
	}
}

func TestMapBuiltinRegistryLookupMethod(t *testing.T) {
	reg := NewMapBuiltinRegistry()
	if fns := reg.GetFunctions(); len(fns) != 0 {
		t.Fatalf("expected an empty registry to start with no functions, got %d", len(fns))
	}
	reg.AddFunction(&types.FunctionDescriptor{Name: "size"})
	if fns := reg.GetFunctions(); len(fns) != 1 || fns[0].Name != "size" {
		t.Fatalf("expected AddFunction to register a top-level function")
	}
	reg.AddMethod(types.STRING, &types.FunctionDescriptor{Name: "length"})
	if _, ok := reg.LookupMethod(types.Of(types.STRING), "length"); !ok {
		t.Fatalf("expected a registered String method to be found")
	}
	if _, ok := reg.LookupMethod(types.Of(types.INT), "length"); ok {
		t.Fatalf("did not expect an int-kind lookup to find a String method")
	}
}
