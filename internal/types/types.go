// Package types implements the closed type set the resolver assigns to
// every AST node (spec §3, §4.3): primitive kinds, their boxed/unboxed
// pairing, numeric widening, and the two open, descriptor-backed kinds
// (INSTANCE and CLASS) that carry a *ClassDescriptor.
package types

import (
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Kind enumerates the closed set of primitive type tags. INSTANCE and
// CLASS additionally carry a ClassDescriptor (see Type.Descriptor).
type Kind int

const (
	UNDEFINED Kind = iota // sentinel used while a VarDecl is being declared
	BOOLEAN
	INT
	LONG
	DOUBLE
	DECIMAL
	STRING
	MAP
	LIST
	ANY
	OBJECT_ARR
	LONG_ARR
	STRING_ARR
	FUNCTION
	NUMBER // the join type of int/long/double/decimal when none dominates
	MATCHER
	ITERATOR
	HEAPLOCAL
	CONTINUATION
	INSTANCE
	CLASS
)

var kindNames = map[Kind]string{
	UNDEFINED: "UNDEFINED", BOOLEAN: "boolean", INT: "int", LONG: "long",
	DOUBLE: "double", DECIMAL: "decimal", STRING: "String", MAP: "Map",
	LIST: "List", ANY: "def", OBJECT_ARR: "Object[]", LONG_ARR: "long[]",
	STRING_ARR: "String[]", FUNCTION: "Function", NUMBER: "Number",
	MATCHER: "Matcher", ITERATOR: "Iterator", HEAPLOCAL: "HeapLocal",
	CONTINUATION: "Continuation", INSTANCE: "Instance", CLASS: "Class",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "?"
}

// numericRank orders the four numeric kinds for widening: int < long <
// double < decimal (spec §4.3 "numeric join").
var numericRank = map[Kind]int{INT: 0, LONG: 1, DOUBLE: 2, DECIMAL: 3}

// Type is a fully-resolved type: a Kind plus, for INSTANCE/CLASS, the
// descriptor it refers to, and a boxed flag distinguishing a primitive's
// boxed (nullable, ANY-compatible) form from its unboxed form.
type Type struct {
	Kind       Kind
	Descriptor *ClassDescriptor
	Boxed      bool
}

func Of(k Kind) Type                       { return Type{Kind: k} }
func OfClass(d *ClassDescriptor) Type       { return Type{Kind: CLASS, Descriptor: d} }
func OfInstance(d *ClassDescriptor) Type    { return Type{Kind: INSTANCE, Descriptor: d} }
func (t Type) Box() Type                   { t.Boxed = true; return t }
func (t Type) Unbox() Type                 { t.Boxed = false; return t }

// Is reports whether t is exactly kind, boxed or not.
func (t Type) Is(kind Kind) bool { return t.Kind == kind }

// IsNumeric reports whether t is one of the four numeric kinds.
func (t Type) IsNumeric() bool { _, ok := numericRank[t.Kind]; return ok }

// IsRef reports whether values of this type are reference-like (so
// assignment/capture needs no boxing to share mutation): MAP, LIST, STRING,
// INSTANCE, FUNCTION, and ANY are all reference kinds; the four numeric
// kinds and BOOLEAN are value kinds unless explicitly boxed.
func (t Type) IsRef() bool {
	switch t.Kind {
	case MAP, LIST, STRING, INSTANCE, CLASS, FUNCTION, ANY, OBJECT_ARR, LONG_ARR, STRING_ARR, MATCHER, ITERATOR, CONTINUATION:
		return true
	default:
		return t.Boxed
	}
}

// IsConvertibleTo reports whether a value of type t can convert to target
// without an explicit runtime coercion helper: identical kinds, any numeric
// kind to a wider numeric kind, and everything to ANY.
func (t Type) IsConvertibleTo(target Type) bool {
	if target.Kind == ANY {
		return true
	}
	if t.Kind == target.Kind {
		return true
	}
	if t.IsNumeric() && target.IsNumeric() {
		return numericRank[t.Kind] <= numericRank[target.Kind]
	}
	return false
}

// Join computes the numeric-widening join of two numeric types, per spec
// §4.3's "picks the numeric join (int < long < double < decimal)". Callers
// must check IsNumeric on both operands first.
func Join(a, b Type) Type {
	if numericRank[a.Kind] >= numericRank[b.Kind] {
		return a
	}
	return b
}

// FunctionDescriptor describes one user-defined or built-in callable: its
// name, return type, parameter list (insertion order matters for the
// wrapper-synthesis algorithm, spec §4.3), and which of its parameters are
// mandatory (no default/initialiser).
type FunctionDescriptor struct {
	Name            string
	ReturnType      Type
	ParamNames      []string
	ParamTypes      []Type
	MandatoryParams map[string]bool

	IsStatic     bool
	IsBuiltin    bool
	IsAsync      bool
	IsWrapper    bool
	IsInitMethod bool
	NeedsLocation bool

	ImplementingClass  string
	ImplementingMethod string
}

// ParamCount is the total declared parameter count.
func (f *FunctionDescriptor) ParamCount() int { return len(f.ParamNames) }

// MandatoryCount is how many parameters are in MandatoryParams (have no
// default value), wherever they stand in the parameter list.
func (f *FunctionDescriptor) MandatoryCount() int {
	n := 0
	for _, p := range f.ParamNames {
		if f.MandatoryParams[p] {
			n++
		}
	}
	return n
}

// ClassDescriptor describes one user-defined class: its fully-qualified
// name, optional base class, implemented interfaces, and its member maps.
// Fields and methods use an insertion-ordered map (spec §3: "insertion-
// ordered map of field name -> type") so that iteration order for
// diagnostics and wrapper generation matches declaration order, backed by
// wk8/go-ordered-map rather than a plain Go map (which has none).
type ClassDescriptor struct {
	Name       string
	BaseClass  *ClassDescriptor
	Interfaces []*ClassDescriptor

	Fields  *orderedmap.OrderedMap[string, Type]
	Methods *orderedmap.OrderedMap[string, *FunctionDescriptor]
	Inner   *orderedmap.OrderedMap[string, *ClassDescriptor]

	InitMethod *FunctionDescriptor
}

// NewClassDescriptor returns an empty descriptor with its member maps
// initialised.
func NewClassDescriptor(name string) *ClassDescriptor {
	return &ClassDescriptor{
		Name:    name,
		Fields:  orderedmap.New[string, Type](),
		Methods: orderedmap.New[string, *FunctionDescriptor](),
		Inner:   orderedmap.New[string, *ClassDescriptor](),
	}
}

// LookupField walks BaseClass chains looking for a declared field.
func (c *ClassDescriptor) LookupField(name string) (Type, bool) {
	for cur := c; cur != nil; cur = cur.BaseClass {
		if t, ok := cur.Fields.Get(name); ok {
			return t, true
		}
	}
	return Type{}, false
}

// LookupMethod walks BaseClass chains looking for a declared method.
func (c *ClassDescriptor) LookupMethod(name string) (*FunctionDescriptor, bool) {
	for cur := c; cur != nil; cur = cur.BaseClass {
		if m, ok := cur.Methods.Get(name); ok {
			return m, true
		}
	}
	return nil, false
}

// TypeRef is a node's own reference, used before resolution fixes up the
// actual referenced type. See DelegatingType for the forward-reference
// case spec §4.3 describes for "p.k.g.C.Inner" style type names.
type TypeRef interface {
	Resolve() (Type, bool)
}

// DelegatingType implements TypeRef for a type name that cannot be
// resolved at the point it's parsed (the named class may be declared
// later in the same file, or in an enclosing class not yet finished).
// Resolve is re-attempted by the caller (typically the resolver, lazily)
// once the referenced declaration exists.
type DelegatingType struct {
	Name    string
	resolve func(name string) (Type, bool)
}

// NewDelegatingType returns a DelegatingType that calls resolveFn lazily.
func NewDelegatingType(name string, resolveFn func(name string) (Type, bool)) *DelegatingType {
	return &DelegatingType{Name: name, resolve: resolveFn}
}

func (d *DelegatingType) Resolve() (Type, bool) {
	if d.resolve == nil {
		return Type{}, false
	}
	return d.resolve(d.Name)
}
