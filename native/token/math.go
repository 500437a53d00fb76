package token

import "math/big"

var basisPoints = big.NewInt(10_000)

// bpsShare computes amount * bps / 10000 with big integer arithmetic.
func bpsShare(amount *big.Int, bps uint64) *big.Int {
	if amount == nil || amount.Sign() <= 0 || bps == 0 {
		return big.NewInt(0)
	}
	share := new(big.Int).Mul(amount, new(big.Int).SetUint64(bps))
	return share.Div(share, basisPoints)
}

// vestedAmount returns the portion of total released after elapsed seconds
// of a linear vesting schedule. The result is clamped to [0, total].
func vestedAmount(total *big.Int, elapsed, duration int64) *big.Int {
	if total == nil || total.Sign() <= 0 || duration <= 0 || elapsed <= 0 {
		return big.NewInt(0)
	}
	if elapsed >= duration {
		return new(big.Int).Set(total)
	}
	vested := new(big.Int).Mul(total, big.NewInt(elapsed))
	return vested.Div(vested, big.NewInt(duration))
}
