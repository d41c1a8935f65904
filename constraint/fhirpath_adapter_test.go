package constraint

import (
	"context"
	"testing"
)

func TestFHIRPathAdapter_Evaluate(t *testing.T) {
	a := NewFHIRPathAdapter(32)
	env := Env{Value: map[string]any{"active": true}}

	ok, err := a.Evaluate(context.Background(), "active", env)
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if !ok {
		t.Errorf("Evaluate() = false, want true")
	}
}

func TestFHIRPathAdapter_EvaluateFalse(t *testing.T) {
	a := NewFHIRPathAdapter(32)
	env := Env{Value: map[string]any{"active": false}}

	ok, err := a.Evaluate(context.Background(), "active", env)
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if ok {
		t.Errorf("Evaluate() = true, want false")
	}
}

func TestFHIRPathAdapter_EmptyCollectionIsFalse(t *testing.T) {
	a := NewFHIRPathAdapter(32)
	env := Env{Value: map[string]any{"active": true}}

	ok, err := a.Evaluate(context.Background(), "missingField", env)
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if ok {
		t.Errorf("Evaluate() = true for empty collection, want false")
	}
}

func TestFHIRPathAdapter_CompileError(t *testing.T) {
	a := NewFHIRPathAdapter(32)
	env := Env{Value: map[string]any{}}

	_, err := a.Evaluate(context.Background(), "(((", env)
	if err == nil {
		t.Fatal("Evaluate() error = nil, want compile error")
	}
}

func TestFHIRPathAdapter_CachesCompiledExpression(t *testing.T) {
	a := NewFHIRPathAdapter(32)
	env := Env{Value: map[string]any{"active": true}}

	if _, err := a.Evaluate(context.Background(), "active", env); err != nil {
		t.Fatalf("first Evaluate() error = %v", err)
	}
	if _, ok := a.cache.Get("active"); !ok {
		t.Error("expected expression to be cached after first evaluation")
	}
	if _, err := a.Evaluate(context.Background(), "active", env); err != nil {
		t.Fatalf("second Evaluate() error = %v", err)
	}
}

var _ Evaluator = (*FHIRPathAdapter)(nil)
