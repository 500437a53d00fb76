package registry

import (
	"strconv"

	"datacoin/core/events"
	"datacoin/core/types"
	"datacoin/crypto"
)

const (
	// EventTypeAssetAdded is emitted when a collateral asset is approved.
	EventTypeAssetAdded = "registry.asset.added"
	// EventTypeAssetUpdated is emitted when an asset config changes.
	EventTypeAssetUpdated = "registry.asset.updated"
	// EventTypeAssetRemoved is emitted when an asset is deactivated.
	EventTypeAssetRemoved = "registry.asset.removed"
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

func assetAttributes(cfg *AssetConfig) map[string]string {
	return map[string]string{
		"token":              crypto.Hex(cfg.Token),
		"active":             strconv.FormatBool(cfg.Active),
		"minLockAmount":      cfg.MinLockAmount.String(),
		"buyTaxBps":          strconv.FormatUint(cfg.BuyTaxBps, 10),
		"sellTaxBps":         strconv.FormatUint(cfg.SellTaxBps, 10),
		"mintTaxBps":         strconv.FormatUint(cfg.MintTaxBps, 10),
		"lighthouseShareBps": strconv.FormatUint(cfg.LighthouseShareBps, 10),
	}
}

// AssetAddedEvent describes a newly approved collateral asset.
func AssetAddedEvent(cfg *AssetConfig) *types.Event {
	return &types.Event{Type: EventTypeAssetAdded, Attributes: assetAttributes(cfg)}
}

// AssetUpdatedEvent describes an asset config update.
func AssetUpdatedEvent(cfg *AssetConfig) *types.Event {
	return &types.Event{Type: EventTypeAssetUpdated, Attributes: assetAttributes(cfg)}
}

// AssetRemovedEvent describes an asset deactivation.
func AssetRemovedEvent(token [20]byte) *types.Event {
	return &types.Event{
		Type:       EventTypeAssetRemoved,
		Attributes: map[string]string{"token": crypto.Hex(token)},
	}
}
