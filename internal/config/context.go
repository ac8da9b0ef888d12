// Package config carries the resolver's external-collaborator seams (spec
// §4.5): the Context the caller configures a compile with, and the
// PackageRegistry/BuiltinRegistry interfaces the resolver queries for
// names it does not itself define. Context follows the teacher lexer's
// functional-options construction pattern.
package config

import (
	"os"
	"sync/atomic"

	"github.com/goccy/go-yaml"

	"github.com/cwbudde/go-jactl/internal/ast"
	"github.com/cwbudde/go-jactl/internal/types"
)

// Context is the set of inputs the Resolver needs beyond the AST itself
// (spec §4.5). JavaPackage names the target package new classes are
// generated into; MaxScale bounds decimal constant-folding precision;
// EvaluateConstExprs toggles constant folding off entirely; ReplMode
// re-points top-level declarations at the injected globals map instead of
// ordinary locals.
type Context struct {
	JavaPackage        string
	MaxScale           int
	EvaluateConstExprs bool
	ReplMode           bool
	GlobalVars         map[string]*ast.VarDecl

	nameCounter atomic.Int64
}

// ContextOption configures a Context at construction time.
type ContextOption func(*Context)

func WithJavaPackage(pkg string) ContextOption {
	return func(c *Context) { c.JavaPackage = pkg }
}

func WithMaxScale(scale int) ContextOption {
	return func(c *Context) { c.MaxScale = scale }
}

func WithReplMode(repl bool) ContextOption {
	return func(c *Context) { c.ReplMode = repl }
}

func WithEvaluateConstExprs(eval bool) ContextOption {
	return func(c *Context) { c.EvaluateConstExprs = eval }
}

func WithGlobalVars(vars map[string]*ast.VarDecl) ContextOption {
	return func(c *Context) { c.GlobalVars = vars }
}

// NewContext builds a Context with defaults (const-folding on, scale 20,
// REPL mode off) and applies opts on top.
func NewContext(opts ...ContextOption) *Context {
	c := &Context{
		MaxScale:           20,
		EvaluateConstExprs: true,
		GlobalVars:         map[string]*ast.VarDecl{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NextSyntheticName mints a unique name for generated classes/wrappers
// from a counter that increases monotonically per Context, safe for
// concurrent compilations sharing the same Context.
func (c *Context) NextSyntheticName(prefix string) string {
	n := c.nameCounter.Add(1)
	return prefix + "$" + itoa(n)
}

func itoa(n int64) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// fileContext mirrors the subset of Context fields an embedder may check
// into a jactl.yaml alongside their scripts.
type fileContext struct {
	JavaPackage        string `yaml:"javaPackage"`
	MaxScale           int    `yaml:"maxScale"`
	EvaluateConstExprs bool   `yaml:"evaluateConstExprs"`
	ReplMode           bool   `yaml:"replMode"`
}

// LoadContext reads a YAML configuration file and returns the Context it
// describes. Fields absent from the file keep NewContext's defaults.
func LoadContext(path string) (*Context, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	fc := fileContext{MaxScale: 20, EvaluateConstExprs: true}
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, err
	}
	return NewContext(
		WithJavaPackage(fc.JavaPackage),
		WithMaxScale(fc.MaxScale),
		WithEvaluateConstExprs(fc.EvaluateConstExprs),
		WithReplMode(fc.ReplMode),
	), nil
}

// Package is one named package's class namespace, as exposed by a
// PackageRegistry (spec §4.5).
type Package interface {
	GetClass(name string) (*types.ClassDescriptor, bool)
}

// PackageRegistry resolves a dotted package path to a Package. The real
// runtime library owns module loading; the core only ever reads through
// this seam (spec §1, §4.5).
type PackageRegistry interface {
	GetPackage(name string) (Package, bool)
}

// BuiltinRegistry is the read-only view onto the runtime's built-in
// function/method table (spec §1, §4.5).
type BuiltinRegistry interface {
	GetFunctions() []*types.FunctionDescriptor
	LookupMethod(t types.Type, name string) (*types.FunctionDescriptor, bool)
}

// MapPackageRegistry and MapBuiltinRegistry are minimal in-memory
// implementations of the two registry seams, useful for embedding and
// tests without standing up the real runtime library (spec §4.5
// "External-collaborator seams" deliberately leaves their production
// implementation to that library; these exist only so the core is
// reachable on its own).

type mapPackage struct {
	classes map[string]*types.ClassDescriptor
}

func (p *mapPackage) GetClass(name string) (*types.ClassDescriptor, bool) {
	c, ok := p.classes[name]
	return c, ok
}

// MapPackageRegistry is a PackageRegistry backed by an in-memory map,
// populated with AddClass.
type MapPackageRegistry struct {
	packages map[string]*mapPackage
}

func NewMapPackageRegistry() *MapPackageRegistry {
	return &MapPackageRegistry{packages: map[string]*mapPackage{}}
}

func (r *MapPackageRegistry) AddClass(pkg, name string, desc *types.ClassDescriptor) {
	p, ok := r.packages[pkg]
	if !ok {
		p = &mapPackage{classes: map[string]*types.ClassDescriptor{}}
		r.packages[pkg] = p
	}
	p.classes[name] = desc
}

func (r *MapPackageRegistry) GetPackage(name string) (Package, bool) {
	p, ok := r.packages[name]
	return p, ok
}

// MapBuiltinRegistry is a BuiltinRegistry backed by an in-memory slice,
// populated with AddFunction/AddMethod.
type MapBuiltinRegistry struct {
	functions []*types.FunctionDescriptor
	methods   map[types.Kind]map[string]*types.FunctionDescriptor
}

func NewMapBuiltinRegistry() *MapBuiltinRegistry {
	return &MapBuiltinRegistry{methods: map[types.Kind]map[string]*types.FunctionDescriptor{}}
}

func (r *MapBuiltinRegistry) AddFunction(f *types.FunctionDescriptor) {
	r.functions = append(r.functions, f)
}

func (r *MapBuiltinRegistry) AddMethod(t types.Kind, f *types.FunctionDescriptor) {
	m, ok := r.methods[t]
	if !ok {
		m = map[string]*types.FunctionDescriptor{}
		r.methods[t] = m
	}
	m[f.Name] = f
}

func (r *MapBuiltinRegistry) GetFunctions() []*types.FunctionDescriptor { return r.functions }

func (r *MapBuiltinRegistry) LookupMethod(t types.Type, name string) (*types.FunctionDescriptor, bool) {
	m, ok := r.methods[t.Kind]
	if !ok {
		return nil, false
	}
	f, ok := m[name]
	return f, ok
}
