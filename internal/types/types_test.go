package types

import "testing"

func TestJoinWidensToTheWiderNumericKind(t *testing.T) {
	tests := []struct {
		a, b Type
		want Kind
	}{
		{Of(INT), Of(LONG), LONG},
		{Of(LONG), Of(INT), LONG},
		{Of(DOUBLE), Of(DECIMAL), DECIMAL},
		{Of(INT), Of(INT), INT},
	}
	for _, tt := range tests {
		got := Join(tt.a, tt.b)
		if got.Kind != tt.want {
			t.Errorf("Join(%s, %s) = %s, want %s", tt.a.Kind, tt.b.Kind, got.Kind, tt.want)
		}
	}
}

func TestIsConvertibleTo(t *testing.T) {
	if !Of(INT).IsConvertibleTo(Of(LONG)) {
		t.Errorf("expected int convertible to long")
	}
	if Of(LONG).IsConvertibleTo(Of(INT)) {
		t.Errorf("did not expect long convertible to int (narrowing)")
	}
	if !Of(STRING).IsConvertibleTo(Of(ANY)) {
		t.Errorf("expected everything convertible to ANY")
	}
	if Of(STRING).IsConvertibleTo(Of(INT)) {
		t.Errorf("did not expect STRING convertible to INT")
	}
}

func TestIsRefClassifiesReferenceKinds(t *testing.T) {
	for _, k := range []Kind{MAP, LIST, STRING, INSTANCE, FUNCTION, ANY} {
		if !Of(k).IsRef() {
			t.Errorf("expected %s to be a reference kind", k)
		}
	}
	if Of(INT).IsRef() {
		t.Errorf("did not expect unboxed int to be a reference kind")
	}
	if !Of(INT).Box().IsRef() {
		t.Errorf("expected a boxed int to be a reference kind")
	}
}

func TestClassDescriptorLookupWalksBaseChain(t *testing.T) {
	base := NewClassDescriptor("Base")
	base.Fields.Set("x", Of(INT))
	base.Methods.Set("f", &FunctionDescriptor{Name: "f"})

	derived := NewClassDescriptor("Derived")
	derived.BaseClass = base

	if _, ok := derived.LookupField("x"); !ok {
		t.Fatalf("expected a field declared on the base class to be found via the derived class")
	}
	if _, ok := derived.LookupMethod("f"); !ok {
		t.Fatalf("expected a method declared on the base class to be found via the derived class")
	}
	if _, ok := derived.LookupField("missing"); ok {
		t.Fatalf("did not expect an undeclared field to resolve")
	}
}

func TestFunctionDescriptorMandatoryCount(t *testing.T) {
	fd := &FunctionDescriptor{
		Name:            "f",
		ParamNames:      []string{"a", "b", "c"},
		MandatoryParams: map[string]bool{"a": true, "b": true},
	}
	if fd.ParamCount() != 3 {
		t.Fatalf("expected ParamCount 3, got %d", fd.ParamCount())
	}
	if fd.MandatoryCount() != 2 {
		t.Fatalf("expected MandatoryCount 2, got %d", fd.MandatoryCount())
	}
}

func TestDelegatingTypeResolvesLazily(t *testing.T) {
	target := NewClassDescriptor("Later")
	dt := NewDelegatingType("Later", func(name string) (Type, bool) {
		if name == "Later" {
			return OfInstance(target), true
		}
		return Type{}, false
	})
	resolved, ok := dt.Resolve()
	if !ok || resolved.Descriptor != target {
		t.Fatalf("expected DelegatingType to resolve to the later-declared class")
	}
}
