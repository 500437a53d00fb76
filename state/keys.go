package state

// Key prefixes for every record family the manager persists. Address-keyed
// records append the raw 20 bytes to the prefix.
var (
	coinPrefix         = []byte("token/coin/")
	assetPrefix        = []byte("registry/asset/")
	assetIndexKey      = []byte("registry/index")
	poolPrefix         = []byte("market/pool/")
	recordPrefix       = []byte("factory/record/")
	coinIndexKey       = []byte("factory/index")
	creatorIndexPrefix = []byte("factory/creator/")
	factoryParamsKey   = []byte("factory/params")
	balancePrefix      = []byte("bank/balance/")
)

func coinKey(addr [20]byte) []byte {
	return append(append([]byte{}, coinPrefix...), addr[:]...)
}

func assetKey(token [20]byte) []byte {
	return append(append([]byte{}, assetPrefix...), token[:]...)
}

func poolKey(token [20]byte) []byte {
	return append(append([]byte{}, poolPrefix...), token[:]...)
}

func recordKey(coin [20]byte) []byte {
	return append(append([]byte{}, recordPrefix...), coin[:]...)
}

func creatorIndexKey(creator [20]byte) []byte {
	return append(append([]byte{}, creatorIndexPrefix...), creator[:]...)
}

func balanceKey(asset [20]byte, holder [20]byte) []byte {
	key := append(append([]byte{}, balancePrefix...), asset[:]...)
	return append(key, holder[:]...)
}
