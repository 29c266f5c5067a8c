package secretbox

import (
	"encoding/base64"
	"testing"
)

func testKey() string {
	return base64.StdEncoding.EncodeToString(make([]byte, 32))
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	box, err := New(testKey())
	if err != nil {
		t.Fatalf("new box: %v", err)
	}
	sealed, err := box.Encrypt("APP_USR-access-token")
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if sealed == "APP_USR-access-token" {
		t.Fatal("ciphertext must differ from plaintext")
	}
	plain, err := box.Decrypt(sealed)
	if err != nil {
		t.Fatalf("decrypt: %v", err)
	}
	if plain != "APP_USR-access-token" {
		t.Fatalf("round trip mismatch: %q", plain)
	}
}

func TestNonceMakesCiphertextUnique(t *testing.T) {
	box, _ := New(testKey())
	a, _ := box.Encrypt("same")
	b, _ := box.Encrypt("same")
	if a == b {
		t.Fatal("two encryptions of the same value must differ")
	}
}

func TestRejectsWrongKeyLength(t *testing.T) {
	short := base64.StdEncoding.EncodeToString(make([]byte, 16))
	if _, err := New(short); err == nil {
		t.Fatal("expected error for 16-byte key")
	}
	if _, err := New(""); err == nil {
		t.Fatal("expected error for empty key")
	}
}

func TestDecryptRejectsGarbage(t *testing.T) {
	box, _ := New(testKey())
	if _, err := box.Decrypt("AAAA"); err == nil {
		t.Fatal("expected error for truncated ciphertext")
	}
}
