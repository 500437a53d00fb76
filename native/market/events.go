package market

import (
	"math/big"

	"datacoin/core/events"
	"datacoin/core/types"
	"datacoin/crypto"
)

const (
	// EventTypePoolInitialized is emitted when a pool is seeded.
	EventTypePoolInitialized = "market.pool.initialized"
	// EventTypeBuy is emitted when collateral is swapped into the coin.
	EventTypeBuy = "market.swap.buy"
	// EventTypeSell is emitted when the coin is swapped into collateral.
	EventTypeSell = "market.swap.sell"
)

type eventEnvelope struct {
	evt *types.Event
}

func (e eventEnvelope) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e eventEnvelope) Event() *types.Event { return e.evt }

// WrapEvent converts a raw event payload into the emitter-friendly envelope.
func WrapEvent(evt *types.Event) events.Event { return eventEnvelope{evt: evt} }

// PoolInitializedEvent describes a freshly seeded pool.
func PoolInitializedEvent(pool *Pool) *types.Event {
	return &types.Event{
		Type: EventTypePoolInitialized,
		Attributes: map[string]string{
			"token":             crypto.Hex(pool.Token),
			"collateral":        crypto.Hex(pool.Collateral),
			"pool":              crypto.Hex(pool.Address),
			"seeder":            crypto.Hex(pool.Seeder),
			"tokenReserve":      pool.TokenReserve.String(),
			"collateralReserve": pool.CollateralReserve.String(),
			"lpSupply":          pool.LPSupply.String(),
		},
	}
}

// SwapEvent describes an executed trade of either direction.
func SwapEvent(eventType string, token [20]byte, trader [20]byte, amountIn, amountOut, tax *big.Int) *types.Event {
	return &types.Event{
		Type: eventType,
		Attributes: map[string]string{
			"token":     crypto.Hex(token),
			"trader":    crypto.Hex(trader),
			"amountIn":  amountIn.String(),
			"amountOut": amountOut.String(),
			"tax":       tax.String(),
		},
	}
}
