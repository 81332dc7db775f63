package errors

import (
	"errors"
	"testing"
)

func TestDomainError(t *testing.T) {
	t.Run("New", func(t *testing.T) {
		err := New(CodeNotFound, "type not found")
		if err.Error() != "[NOT_FOUND] type not found" {
			t.Errorf("expected [NOT_FOUND] type not found, got %s", err.Error())
		}
	})

	t.Run("Wrap", func(t *testing.T) {
		original := errors.New("original error")
		err := Wrap(original, CodeInternal, "internal failure")
		expected := "[INTERNAL_ERROR] internal failure: original error"
		if err.Error() != expected {
			t.Errorf("expected %s, got %s", expected, err.Error())
		}
	})

	t.Run("IsCode", func(t *testing.T) {
		err := New(CodeInvalidFilter, "invalid kind filter")
		if !IsCode(err, CodeInvalidFilter) {
			t.Error("expected IsCode to return true for CodeInvalidFilter")
		}
		if IsCode(err, CodeNotFound) {
			t.Error("expected IsCode to return false for CodeNotFound")
		}
	})

	t.Run("IsCodeWithWrapped", func(t *testing.T) {
		original := errors.New("original error")
		err := Wrap(original, CodeLoadError, "module open failed")
		if !IsCode(err, CodeLoadError) {
			t.Error("expected IsCode to return true for wrapped CodeLoadError")
		}
	})

	t.Run("Context", func(t *testing.T) {
		err := New(CodeLoadError, "dependency unresolved")
		err = AddContext(err, CtxDependency, "Acme.Core")
		var de *DomainError
		if !errors.As(err, &de) {
			t.Fatal("expected DomainError")
		}
		if de.Context[CtxDependency] != "Acme.Core" {
			t.Errorf("expected dependency context, got %v", de.Context)
		}
	})

	t.Run("CodeOf", func(t *testing.T) {
		if CodeOf(errors.New("plain")) != CodeInternal {
			t.Error("expected foreign errors to map to CodeInternal")
		}
		if CodeOf(New(CodeNotFound, "x")) != CodeNotFound {
			t.Error("expected CodeNotFound")
		}
	})
}
