package market

import "math/big"

var basisPoints = big.NewInt(10_000)

// applyTaxBps splits amount into the net portion entering the swap and the
// extracted tax.
func applyTaxBps(amount *big.Int, taxBps uint64) (net *big.Int, tax *big.Int) {
	if amount == nil || amount.Sign() <= 0 {
		return big.NewInt(0), big.NewInt(0)
	}
	net = new(big.Int).Mul(amount, new(big.Int).SetUint64(10_000-taxBps))
	net = net.Div(net, basisPoints)
	tax = new(big.Int).Sub(amount, net)
	return net, tax
}

// bpsShare computes amount * bps / 10000.
func bpsShare(amount *big.Int, bps uint64) *big.Int {
	if amount == nil || amount.Sign() <= 0 || bps == 0 {
		return big.NewInt(0)
	}
	share := new(big.Int).Mul(amount, new(big.Int).SetUint64(bps))
	return share.Div(share, basisPoints)
}

// swapOutput computes the constant-product output amount for amountIn added
// to inReserve against outReserve:
//
//	out = outReserve - (outReserve * inReserve) / (inReserve + amountIn)
//
// Integer division rounds the preserved product up, so the product of
// reserves never decreases across a swap.
func swapOutput(outReserve, inReserve, amountIn *big.Int) *big.Int {
	if amountIn == nil || amountIn.Sign() <= 0 {
		return big.NewInt(0)
	}
	product := new(big.Int).Mul(outReserve, inReserve)
	denominator := new(big.Int).Add(inReserve, amountIn)
	kept := new(big.Int).Div(product, denominator)
	remainder := new(big.Int).Mod(product, denominator)
	if remainder.Sign() > 0 {
		kept = kept.Add(kept, big.NewInt(1))
	}
	out := new(big.Int).Sub(outReserve, kept)
	if out.Sign() < 0 {
		return big.NewInt(0)
	}
	return out
}

// lpMintAmount derives the liquidity receipt supply for the initial deposit
// as the integer square root of the reserve product.
func lpMintAmount(tokenAmount, collateralAmount *big.Int) *big.Int {
	product := new(big.Int).Mul(tokenAmount, collateralAmount)
	return product.Sqrt(product)
}
