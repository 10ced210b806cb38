package digest

import (
	"bytes"
	"errors"
	"testing"
)

func TestSealOpenRoundTrip(t *testing.T) {
	plain := []byte("weekly family report")

	sealed, err := Seal(plain, "correct horse")
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	if bytes.Contains(sealed, plain) {
		t.Error("sealed output contains plaintext")
	}
	if len(sealed) <= saltSize+nonceSize+len(plain) {
		t.Errorf("sealed length = %d, too short for salt, nonce and tag", len(sealed))
	}

	got, err := Open(sealed, "correct horse")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if !bytes.Equal(got, plain) {
		t.Errorf("round trip = %q, want %q", got, plain)
	}
}

func TestSealUsesFreshSalt(t *testing.T) {
	a, _ := Seal([]byte("x"), "p")
	b, _ := Seal([]byte("x"), "p")
	if bytes.Equal(a[:saltSize], b[:saltSize]) {
		t.Error("two seals share a salt")
	}
}

func TestOpenWrongPassphrase(t *testing.T) {
	sealed, _ := Seal([]byte("secret"), "right")
	if _, err := Open(sealed, "wrong"); err == nil {
		t.Error("open with wrong passphrase succeeded")
	}
}

func TestOpenTruncated(t *testing.T) {
	if _, err := Open(make([]byte, saltSize), "p"); !errors.Is(err, errSealedTooShort) {
		t.Errorf("err = %v, want errSealedTooShort", err)
	}
}

func TestDeriveKeyDeterministic(t *testing.T) {
	salt := []byte("1234567890abcdef")
	if !bytes.Equal(deriveKey("p", salt), deriveKey("p", salt)) {
		t.Error("same passphrase and salt gave different keys")
	}
	if bytes.Equal(deriveKey("p1", salt), deriveKey("p2", salt)) {
		t.Error("different passphrases gave the same key")
	}
	if n := len(deriveKey("p", salt)); n != keySize {
		t.Errorf("key length = %d, want %d", n, keySize)
	}
}
