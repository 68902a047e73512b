package prompt

import (
	"testing"
)

func TestConfirmWithForce(t *testing.T) {
	ok, err := ConfirmWithForce("Purge the cache?", true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Error("expected forced confirmation to succeed")
	}
}
