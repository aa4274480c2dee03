package secret

import "testing"

func TestEncryptDecryptRoundTrip(t *testing.T) {
	key, err := GenerateKey()
	if err != nil {
		t.Fatal(err)
	}
	enc, err := Open(key)
	if err != nil {
		t.Fatal(err)
	}
	token, err := enc.Encrypt("s3cr3t-password")
	if err != nil {
		t.Fatal(err)
	}
	plain, err := enc.Decrypt(token)
	if err != nil {
		t.Fatal(err)
	}
	if plain != "s3cr3t-password" {
		t.Fatalf("got %q", plain)
	}
}

func TestDecryptWrongKeyFails(t *testing.T) {
	key1, _ := GenerateKey()
	key2, _ := GenerateKey()
	enc1, _ := Open(key1)
	enc2, _ := Open(key2)
	token, err := enc1.Encrypt("hello")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := enc2.Decrypt(token); err == nil {
		t.Fatal("expected decryption with wrong key to fail")
	}
}
