package secrets

import (
	"bytes"
	"errors"
	"testing"
)

func newTestCipher(t *testing.T) *Cipher {
	t.Helper()
	c, err := NewCipher("unit-test-master-secret")
	if err != nil {
		t.Fatalf("new cipher: %v", err)
	}
	return c
}

func TestNewCipherRequiresMasterSecret(t *testing.T) {
	if _, err := NewCipher(""); !errors.Is(err, ErrEmptyMasterSecret) {
		t.Fatalf("expected ErrEmptyMasterSecret, got %v", err)
	}
}

func TestSealUnsealRoundTrip(t *testing.T) {
	c := newTestCipher(t)

	for _, plaintext := range []string{"", "x", "sk-abc123", "a much longer secret value with spaces and ünïcode"} {
		sealed, errSeal := c.Seal(plaintext, "user-1")
		if errSeal != nil {
			t.Fatalf("seal %q: %v", plaintext, errSeal)
		}
		got, errUnseal := c.Unseal(sealed, "user-1")
		if errUnseal != nil {
			t.Fatalf("unseal %q: %v", plaintext, errUnseal)
		}
		if got != plaintext {
			t.Fatalf("round trip mismatch: got %q want %q", got, plaintext)
		}
	}
}

func TestSealGeneratesFreshIV(t *testing.T) {
	c := newTestCipher(t)

	first, errFirst := c.Seal("sk-abc123", "user-1")
	if errFirst != nil {
		t.Fatalf("seal: %v", errFirst)
	}
	second, errSecond := c.Seal("sk-abc123", "user-1")
	if errSecond != nil {
		t.Fatalf("seal: %v", errSecond)
	}

	if bytes.Equal(first.IV, second.IV) {
		t.Fatalf("expected distinct IVs")
	}
	if bytes.Equal(first.Ciphertext, second.Ciphertext) {
		t.Fatalf("expected distinct ciphertexts")
	}
}

func TestUnsealRejectsTamperedInput(t *testing.T) {
	c := newTestCipher(t)

	sealed, errSeal := c.Seal("sk-abc123", "user-1")
	if errSeal != nil {
		t.Fatalf("seal: %v", errSeal)
	}

	flipByte := func(in []byte, i int) []byte {
		out := make([]byte, len(in))
		copy(out, in)
		out[i] ^= 0x01
		return out
	}

	cases := map[string]Sealed{
		"ciphertext": {Ciphertext: flipByte(sealed.Ciphertext, 0), IV: sealed.IV, AuthTag: sealed.AuthTag},
		"iv":         {Ciphertext: sealed.Ciphertext, IV: flipByte(sealed.IV, 0), AuthTag: sealed.AuthTag},
		"auth tag":   {Ciphertext: sealed.Ciphertext, IV: sealed.IV, AuthTag: flipByte(sealed.AuthTag, 0)},
	}
	for name, tampered := range cases {
		if _, err := c.Unseal(tampered, "user-1"); !errors.Is(err, ErrAuthenticationFailed) {
			t.Fatalf("%s tamper: expected ErrAuthenticationFailed, got %v", name, err)
		}
	}
}

func TestUnsealRejectsWrongUserContext(t *testing.T) {
	c := newTestCipher(t)

	sealed, errSeal := c.Seal("sk-abc123", "user-1")
	if errSeal != nil {
		t.Fatalf("seal: %v", errSeal)
	}
	if _, err := c.Unseal(sealed, "user-2"); !errors.Is(err, ErrAuthenticationFailed) {
		t.Fatalf("expected ErrAuthenticationFailed, got %v", err)
	}
}

func TestUnsealRejectsWrongKey(t *testing.T) {
	c := newTestCipher(t)
	other, errOther := NewCipher("a-different-master-secret")
	if errOther != nil {
		t.Fatalf("new cipher: %v", errOther)
	}

	sealed, errSeal := c.Seal("sk-abc123", "user-1")
	if errSeal != nil {
		t.Fatalf("seal: %v", errSeal)
	}
	if _, err := other.Unseal(sealed, "user-1"); !errors.Is(err, ErrAuthenticationFailed) {
		t.Fatalf("expected ErrAuthenticationFailed, got %v", err)
	}
}
