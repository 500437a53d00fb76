package crypto

import (
	"strings"
	"testing"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	var addr Address
	for i := range addr {
		addr[i] = byte(i + 1)
	}
	encoded := Encode(addr)
	if !strings.HasPrefix(encoded, AddressPrefix+"1") {
		t.Fatalf("encoded address %q lacks prefix", encoded)
	}
	decoded, err := Decode(encoded)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if decoded != addr {
		t.Fatalf("round trip mismatch: %x != %x", decoded, addr)
	}
}

func TestDecodeRejectsForeignPrefix(t *testing.T) {
	if _, err := Decode("bc1qw508d6qejxtdg4y5r3zarvary0c5xw7kv8f3t4"); err == nil {
		t.Fatal("expected prefix rejection")
	}
}

func TestDeriveAddressesAreStableAndDistinct(t *testing.T) {
	creator := Address{19: 0x01}
	var salt [32]byte
	salt[31] = 0x07

	coin := DeriveCoinAddress(creator, salt)
	if coin != DeriveCoinAddress(creator, salt) {
		t.Fatal("coin derivation not deterministic")
	}
	if ZeroAddress(coin) {
		t.Fatal("derived coin address is zero")
	}

	var otherSalt [32]byte
	otherSalt[31] = 0x08
	if coin == DeriveCoinAddress(creator, otherSalt) {
		t.Fatal("different salts collided")
	}

	pool := DerivePoolAddress(coin)
	if pool == coin {
		t.Fatal("pool address equals coin address")
	}
	if pool != DerivePoolAddress(coin) {
		t.Fatal("pool derivation not deterministic")
	}

	if DeriveModuleAddress("factory") == DeriveModuleAddress("market") {
		t.Fatal("module accounts collided")
	}
}
