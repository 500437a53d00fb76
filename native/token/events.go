package token

import (
	"math/big"
	"strconv"

	"datacoin/core/events"
	"datacoin/core/types"
	"datacoin/crypto"
)

const (
	// EventTypeCoinInitialized is emitted when a coin ledger is created.
	EventTypeCoinInitialized = "token.coin.initialized"
	// EventTypeVestingClaimed is emitted when the creator claims vested supply.
	EventTypeVestingClaimed = "token.vesting.claimed"
	// EventTypeContributorsMinted is emitted on a contributor allocation mint.
	EventTypeContributorsMinted = "token.contributors.minted"
	// EventTypeMinterGranted is emitted when the minter role is delegated.
	EventTypeMinterGranted = "token.minter.granted"
	// EventTypeBurned is emitted when coin supply is destroyed.
	EventTypeBurned = "token.burned"
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

// CoinInitializedEvent describes a freshly created coin ledger.
func CoinInitializedEvent(coin *Coin) *types.Event {
	return &types.Event{
		Type: EventTypeCoinInitialized,
		Attributes: map[string]string{
			"coin":      crypto.Hex(coin.Address),
			"creator":   crypto.Hex(coin.Creator),
			"symbol":    coin.Symbol,
			"maxSupply": coin.MaxSupply.String(),
			"vesting":   strconv.FormatInt(coin.Alloc.CreatorVesting, 10),
		},
	}
}

// VestingClaimedEvent captures a successful vesting claim.
func VestingClaimedEvent(coin [20]byte, creator [20]byte, amount *big.Int) *types.Event {
	return &types.Event{
		Type: EventTypeVestingClaimed,
		Attributes: map[string]string{
			"coin":    crypto.Hex(coin),
			"creator": crypto.Hex(creator),
			"amount":  amount.String(),
		},
	}
}

// ContributorsMintedEvent captures a contributor allocation mint and the tax
// routed to the treasury.
func ContributorsMintedEvent(coin [20]byte, recipient [20]byte, net *big.Int, tax *big.Int) *types.Event {
	return &types.Event{
		Type: EventTypeContributorsMinted,
		Attributes: map[string]string{
			"coin":      crypto.Hex(coin),
			"recipient": crypto.Hex(recipient),
			"amount":    net.String(),
			"tax":       tax.String(),
		},
	}
}

// MinterGrantedEvent captures a minter role delegation.
func MinterGrantedEvent(coin [20]byte, minter [20]byte) *types.Event {
	return &types.Event{
		Type: EventTypeMinterGranted,
		Attributes: map[string]string{
			"coin":   crypto.Hex(coin),
			"minter": crypto.Hex(minter),
		},
	}
}

// BurnedEvent captures a supply burn.
func BurnedEvent(coin [20]byte, holder [20]byte, amount *big.Int) *types.Event {
	return &types.Event{
		Type: EventTypeBurned,
		Attributes: map[string]string{
			"coin":   crypto.Hex(coin),
			"holder": crypto.Hex(holder),
			"amount": amount.String(),
		},
	}
}
