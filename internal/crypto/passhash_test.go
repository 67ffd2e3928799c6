package crypto

import (
	"bytes"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestRandBytes_LengthAndUniqueness(t *testing.T) {
	t.Parallel()

	const n = 64
	a, err := RandBytes(n)
	if err != nil {
		t.Fatalf("RandBytes: %v", err)
	}
	if len(a) != n {
		t.Fatalf("len=%d, want=%d", len(a), n)
	}
	b, err := RandBytes(n)
	if err != nil {
		t.Fatalf("RandBytes(2): %v", err)
	}
	if bytes.Equal(a, b) {
		t.Fatalf("two subsequent RandBytes(%d) are equal, looks non-random", n)
	}
}

func TestHasher_SaltedAndVerifiable(t *testing.T) {
	t.Parallel()

	h := NewHasher(bcrypt.MinCost)
	h1, err := h.HashPassword("p@ssw0rd")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	h2, err := h.HashPassword("p@ssw0rd")
	if err != nil {
		t.Fatalf("HashPassword(2): %v", err)
	}
	if bytes.Equal(h1, h2) {
		t.Fatalf("hashes must differ by salt")
	}
	if bytes.Contains(h1, []byte("p@ssw0rd")) {
		t.Fatalf("hash contains plaintext")
	}

	if !h.VerifyPassword("p@ssw0rd", h1) || !h.VerifyPassword("p@ssw0rd", h2) {
		t.Fatalf("VerifyPassword: expected true for correct password")
	}
	if h.VerifyPassword("wrong", h1) {
		t.Fatalf("VerifyPassword: expected false for wrong password")
	}
	if h.VerifyPassword("p@ssw0rd", nil) {
		t.Fatalf("VerifyPassword: expected false for empty hash")
	}
}

func TestNewHasher_CostBounds(t *testing.T) {
	t.Parallel()

	if NewHasher(0).cost != DefaultCost || NewHasher(99).cost != DefaultCost {
		t.Fatalf("out-of-range cost must fall back to default")
	}
	if NewHasher(bcrypt.MinCost).cost != bcrypt.MinCost {
		t.Fatalf("in-range cost must be kept")
	}
}

func TestResetToken_DigestRoundTrip(t *testing.T) {
	t.Parallel()

	plain, digest, err := NewResetToken()
	if err != nil {
		t.Fatalf("NewResetToken: %v", err)
	}
	if len(plain) != ResetTokenLen*2 || len(digest) != 64 {
		t.Fatalf("unexpected lengths: plain=%d digest=%d", len(plain), len(digest))
	}
	if plain == digest {
		t.Fatalf("digest must not equal plaintext")
	}
	if Digest(plain) != digest {
		t.Fatalf("digest not deterministic")
	}
	if !DigestEqual(plain, digest) {
		t.Fatalf("DigestEqual: expected true")
	}
	if DigestEqual(plain+"x", digest) || DigestEqual("", digest) || DigestEqual(plain, "") {
		t.Fatalf("DigestEqual: expected false")
	}

	other, _, _ := NewResetToken()
	if other == plain {
		t.Fatalf("reset tokens repeat")
	}
}

func TestHasher_LongPasswordUsesFirst72Bytes(t *testing.T) {
	t.Parallel()

	h := NewHasher(bcrypt.MinCost)
	long := strings.Repeat("a", 100)
	hash, err := h.HashPassword(long)
	if err != nil {
		t.Fatalf("HashPassword(100 bytes): %v", err)
	}
	if !h.VerifyPassword(long, hash) {
		t.Fatalf("long password does not verify against its own hash")
	}
	if !h.VerifyPassword(long[:72]+"different tail", hash) {
		t.Fatalf("bytes past 72 must not matter")
	}
	if h.VerifyPassword(strings.Repeat("b", 100), hash) {
		t.Fatalf("different password verified")
	}
}
