package security_test

import (
	"strings"
	"testing"

	"github.com/angelmondragon/storefront-client/pkg/config"
	"github.com/angelmondragon/storefront-client/pkg/security"
)

func newTestHasher(t *testing.T) *security.Hasher {
	t.Helper()
	h, err := security.NewHasher(config.PasswordConfig{
		ArgonMemoryKB:    8192,
		ArgonTime:        1,
		ArgonParallelism: 1,
		ArgonSaltLen:     16,
		ArgonKeyLen:      32,
	})
	if err != nil {
		t.Fatalf("NewHasher returned error: %v", err)
	}
	return h
}

func TestHashAndVerifyPassword(t *testing.T) {
	h := newTestHasher(t)

	hash, err := h.Hash("very-secure-password")
	if err != nil {
		t.Fatalf("Hash returned error: %v", err)
	}
	if !strings.HasPrefix(hash, "$argon2id$v=19$m=8192,t=1,p=1$") {
		t.Fatalf("unexpected hash format %q", hash)
	}

	ok, err := h.Verify("very-secure-password", hash)
	if err != nil {
		t.Fatalf("Verify returned error for valid hash: %v", err)
	}
	if !ok {
		t.Fatal("Verify failed for the correct password")
	}

	ok, err = h.Verify("bogus-password", hash)
	if err != nil {
		t.Fatalf("Verify returned error for invalid password: %v", err)
	}
	if ok {
		t.Fatal("Verify returned true for incorrect password")
	}
}

func TestHashRejectsEmpty(t *testing.T) {
	if _, err := newTestHasher(t).Hash(""); err == nil {
		t.Fatal("expected error for empty password")
	}
}

func TestVerifyPasswordBadHash(t *testing.T) {
	h := newTestHasher(t)
	for _, encoded := range []string{"not-a-hash", "$argon2id$v=19$m=x,t=1,p=1$c2FsdA$a2V5", "$bcrypt$v=19$m=1,t=1,p=1$c2FsdA$a2V5"} {
		if _, err := h.Verify("irrelevant", encoded); err != security.ErrInvalidHash {
			t.Fatalf("expected ErrInvalidHash for %q, got %v", encoded, err)
		}
	}
}

func TestVerifyMissingNeverMatches(t *testing.T) {
	if newTestHasher(t).VerifyMissing("decoy-password-not-in-use") {
		t.Fatal("VerifyMissing must always report a mismatch")
	}
}

func TestParamsAreClamped(t *testing.T) {
	h, err := security.NewHasher(config.PasswordConfig{ArgonMemoryKB: 1, ArgonTime: 0, ArgonParallelism: 0, ArgonSaltLen: 1, ArgonKeyLen: 1})
	if err != nil {
		t.Fatalf("NewHasher returned error: %v", err)
	}
	p := h.Params()
	if p.Memory != 8 || p.Time != 1 || p.Parallelism != 1 || p.SaltLen != 8 || p.KeyLen != 16 {
		t.Fatalf("unexpected clamped params %+v", p)
	}
}
