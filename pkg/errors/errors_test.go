package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestMetadataFor(t *testing.T) {
	meta := MetadataFor(CodeStockOut)
	if meta.HTTPStatus != http.StatusConflict {
		t.Fatalf("unexpected status for stock-out: %d", meta.HTTPStatus)
	}
	if meta.Retryable {
		t.Fatal("stock-out must not be retryable")
	}

	meta = MetadataFor(CodeVersionConflict)
	if !meta.Retryable {
		t.Fatal("version conflict should be retryable")
	}

	meta = MetadataFor(Code("SOMETHING_ELSE"))
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("unknown codes should map to internal metadata, got %d", meta.HTTPStatus)
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("row locked")
	err := Wrap(CodeVersionConflict, cause, "ledger update rejected")

	if !errors.Is(err, cause) {
		t.Fatal("wrapped error should unwrap to cause")
	}
	if got := err.Error(); got != "VERSION_CONFLICT: ledger update rejected" {
		t.Fatalf("unexpected error string: %q", got)
	}
}

func TestAsFindsTypedError(t *testing.T) {
	inner := New(CodeSeatAssignment, "no free seat")
	err := fmt.Errorf("processing intent: %w", inner)

	typed := As(err)
	if typed == nil {
		t.Fatal("expected typed error in chain")
	}
	if typed.Code() != CodeSeatAssignment {
		t.Fatalf("unexpected code: %s", typed.Code())
	}

	if As(errors.New("plain")) != nil {
		t.Fatal("plain errors should not yield a typed error")
	}
}

func TestHasCode(t *testing.T) {
	err := fmt.Errorf("outer: %w", New(CodeTimeConflict, "overlap"))
	if !HasCode(err, CodeTimeConflict) {
		t.Fatal("expected HasCode to match")
	}
	if HasCode(err, CodeStockOut) {
		t.Fatal("HasCode matched the wrong code")
	}
}

func TestDumpCollectsChain(t *testing.T) {
	err := Wrap(CodeDependency, errors.New("dial tcp: refused"), "redis unavailable")
	d := Dump(err)
	if d.Code != CodeDependency {
		t.Fatalf("unexpected code: %s", d.Code)
	}
	if len(d.Chain) < 2 {
		t.Fatalf("expected full chain, got %v", d.Chain)
	}
}
