package crypto_test

import (
	"path/filepath"
	"strings"
	"testing"

	"claimgate/crypto"
)

func TestAddressRoundTrip(t *testing.T) {
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	addr := key.PubKey().Address()
	encoded := addr.String()
	if !strings.HasPrefix(encoded, crypto.AddressHRP+"1") {
		t.Fatalf("unexpected address encoding %q", encoded)
	}
	decoded, err := crypto.DecodeAddress(encoded)
	if err != nil {
		t.Fatalf("decode address: %v", err)
	}
	if decoded.Bytes() != addr.Bytes() {
		t.Fatalf("round trip mismatch: %x != %x", decoded.Bytes(), addr.Bytes())
	}
}

func TestDecodeAddressRejectsForeignPrefix(t *testing.T) {
	if _, err := crypto.DecodeAddress("bc1qw508d6qejxtdg4y5r3zarvary0c5xw7kv8f3t4"); err == nil {
		t.Fatal("expected foreign prefix to be rejected")
	}
}

func TestAddressFromBytesLength(t *testing.T) {
	if _, err := crypto.AddressFromBytes(make([]byte, 19)); err == nil {
		t.Fatal("expected short input to be rejected")
	}
	if _, err := crypto.AddressFromBytes(make([]byte, 20)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestKeystoreRoundTrip(t *testing.T) {
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	path := filepath.Join(t.TempDir(), "operator.keystore")
	if err := crypto.SaveToKeystore(path, key, "hunter2"); err != nil {
		t.Fatalf("save keystore: %v", err)
	}
	loaded, err := crypto.LoadFromKeystore(path, "hunter2")
	if err != nil {
		t.Fatalf("load keystore: %v", err)
	}
	if loaded.PubKey().Address() != key.PubKey().Address() {
		t.Fatal("loaded key does not match saved key")
	}
	if _, err := crypto.LoadFromKeystore(path, "wrong"); err == nil {
		t.Fatal("expected wrong passphrase to fail")
	}
}
