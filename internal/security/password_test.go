package security

import (
	"errors"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestHasher(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)

	hash, err := h.Hash("password123")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if hash == "password123" {
		t.Fatalf("hash must not equal the plaintext")
	}

	if err := h.Compare(hash, "password123"); err != nil {
		t.Fatalf("Compare correct password: %v", err)
	}
	if err := h.Compare(hash, "nope"); !errors.Is(err, ErrPasswordMismatch) {
		t.Fatalf("Compare wrong password err = %v, want ErrPasswordMismatch", err)
	}
	if err := h.Compare("", "password123"); !errors.Is(err, ErrPasswordMismatch) {
		t.Fatalf("Compare empty hash err = %v, want ErrPasswordMismatch", err)
	}
}

func TestNewHasherClampsCost(t *testing.T) {
	if got := NewHasher(0).cost; got != bcrypt.DefaultCost {
		t.Fatalf("cost = %d, want default", got)
	}
}
