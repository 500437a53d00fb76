package factory

import (
	"math/big"
	"strconv"

	"datacoin/core/events"
	"datacoin/core/types"
	"datacoin/crypto"
)

const (
	// EventTypeCoinCreated is emitted once per successful creation.
	EventTypeCoinCreated = "factory.coin.created"
	// EventTypeLPWithdrawn is emitted when a creator claims the receipt.
	EventTypeLPWithdrawn = "factory.lp.withdrawn"
	// EventTypeCreatorUpdated is emitted on an admin creator transfer.
	EventTypeCreatorUpdated = "factory.creator.updated"
	// EventTypePaused is emitted when creation is paused or unpaused.
	EventTypePaused = "factory.creation.paused"
	// EventTypeFeeUpdated is emitted when the creation fee changes.
	EventTypeFeeUpdated = "factory.fee.updated"
	// EventTypeEmergencyWithdrawn is emitted by the admin escape hatch.
	EventTypeEmergencyWithdrawn = "factory.emergency.withdrawn"
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

// CoinCreatedEvent carries the full creation receipt for observers.
func CoinCreatedEvent(record *DataCoinRecord, name, symbol string) *types.Event {
	return &types.Event{
		Type: EventTypeCoinCreated,
		Attributes: map[string]string{
			"coin":         crypto.Hex(record.CoinAddress),
			"pool":         crypto.Hex(record.PoolAddress),
			"creator":      crypto.Hex(record.Creator),
			"name":         name,
			"symbol":       symbol,
			"tokenURI":     record.TokenURI,
			"lockToken":    crypto.Hex(record.LockToken),
			"tokensLocked": record.TokensLocked.String(),
			"feePaid":      record.FeePaid.String(),
			"lpAmount":     record.LPTokenAmount.String(),
			"unlockAt":     strconv.FormatInt(record.UnlockAt, 10),
		},
	}
}

// LPWithdrawnEvent records a creator claiming the liquidity receipt.
func LPWithdrawnEvent(coin [20]byte, creator [20]byte, amount *big.Int) *types.Event {
	return &types.Event{
		Type: EventTypeLPWithdrawn,
		Attributes: map[string]string{
			"coin":    crypto.Hex(coin),
			"creator": crypto.Hex(creator),
			"amount":  amount.String(),
		},
	}
}

// CreatorUpdatedEvent records an admin creator transfer.
func CreatorUpdatedEvent(coin [20]byte, previous, next [20]byte) *types.Event {
	return &types.Event{
		Type: EventTypeCreatorUpdated,
		Attributes: map[string]string{
			"coin":     crypto.Hex(coin),
			"previous": crypto.Hex(previous),
			"creator":  crypto.Hex(next),
		},
	}
}

// PauseEvent records the creation gate toggling.
func PauseEvent(paused bool) *types.Event {
	return &types.Event{
		Type:       EventTypePaused,
		Attributes: map[string]string{"paused": strconv.FormatBool(paused)},
	}
}

// FeeUpdatedEvent records a creation fee change.
func FeeUpdatedEvent(bps uint64) *types.Event {
	return &types.Event{
		Type:       EventTypeFeeUpdated,
		Attributes: map[string]string{"feeBps": strconv.FormatUint(bps, 10)},
	}
}

// EmergencyWithdrawnEvent records the admin escape hatch firing.
func EmergencyWithdrawnEvent(asset [20]byte, recipient [20]byte, amount *big.Int) *types.Event {
	return &types.Event{
		Type: EventTypeEmergencyWithdrawn,
		Attributes: map[string]string{
			"asset":     crypto.Hex(asset),
			"recipient": crypto.Hex(recipient),
			"amount":    amount.String(),
		},
	}
}
