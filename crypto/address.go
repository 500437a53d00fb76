package crypto

import (
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btcutil/bech32"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// AddressPrefix is the human-readable bech32 prefix used when rendering
// datacoin network addresses.
const AddressPrefix = "dcn"

// Address is a raw 20-byte account identifier.
type Address = [20]byte

// ZeroAddress reports whether the address is the all-zero identity.
func ZeroAddress(addr Address) bool {
	var zero Address
	return addr == zero
}

// Encode renders the address in the canonical bech32 form.
func Encode(addr Address) string {
	conv, err := bech32.ConvertBits(addr[:], 8, 5, true)
	if err != nil {
		panic(err)
	}
	encoded, err := bech32.Encode(AddressPrefix, conv)
	if err != nil {
		panic(err)
	}
	return encoded
}

// Decode parses a bech32 address string produced by Encode.
func Decode(s string) (Address, error) {
	var out Address
	prefix, decoded, err := bech32.Decode(s)
	if err != nil {
		return out, fmt.Errorf("invalid bech32 string: %w", err)
	}
	if prefix != AddressPrefix {
		return out, fmt.Errorf("unexpected address prefix: %s", prefix)
	}
	conv, err := bech32.ConvertBits(decoded, 5, 8, false)
	if err != nil {
		return out, fmt.Errorf("invalid bech32 payload: %w", err)
	}
	if len(conv) != 20 {
		return out, fmt.Errorf("address must be 20 bytes, got %d", len(conv))
	}
	copy(out[:], conv)
	return out, nil
}

// Hex renders the address as 0x-prefixed hex for event attributes.
func Hex(addr Address) string {
	return "0x" + hex.EncodeToString(addr[:])
}

var (
	coinDomain   = []byte("datacoin/coin/v1")
	poolDomain   = []byte("datacoin/pool/v1")
	moduleDomain = []byte("datacoin/module/v1")
)

// DeriveCoinAddress computes the deterministic address of a coin created by
// the supplied creator with the supplied salt. Callers can precompute the
// address before submitting the creation request.
func DeriveCoinAddress(creator Address, salt [32]byte) Address {
	digest := ethcrypto.Keccak256(coinDomain, creator[:], salt[:])
	var out Address
	copy(out[:], digest[12:])
	return out
}

// DerivePoolAddress computes the address of the exchange pool bound to the
// supplied coin.
func DerivePoolAddress(coin Address) Address {
	digest := ethcrypto.Keccak256(poolDomain, coin[:])
	var out Address
	copy(out[:], digest[12:])
	return out
}

// DeriveModuleAddress computes the account a native module holds funds
// under. Module accounts have no key; only engine code can move their
// balances.
func DeriveModuleAddress(name string) Address {
	digest := ethcrypto.Keccak256(moduleDomain, []byte(name))
	var out Address
	copy(out[:], digest[12:])
	return out
}
