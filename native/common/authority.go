package common

import "sync"

// Capability names a privileged action class. Every role-gated operation
// declares the capability it requires and checks the caller against the
// authority table; there is no implicit ownership inheritance.
type Capability string

const (
	// CapabilityAdmin covers protocol administration: registry mutation,
	// fee updates, pausing, creator reassignment and emergency withdrawal.
	CapabilityAdmin Capability = "admin"
	// CapabilityPauser covers toggling the creation pause independently of
	// full admin rights.
	CapabilityPauser Capability = "pauser"
)

// Authority is an in-memory capability table mapping capabilities to the set
// of addresses holding them.
type Authority struct {
	mu     sync.RWMutex
	grants map[Capability]map[[20]byte]struct{}
}

// NewAuthority constructs an empty capability table.
func NewAuthority() *Authority {
	return &Authority{grants: make(map[Capability]map[[20]byte]struct{})}
}

// Grant records that the address holds the capability.
func (a *Authority) Grant(capability Capability, addr [20]byte) {
	if a == nil {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	holders, ok := a.grants[capability]
	if !ok {
		holders = make(map[[20]byte]struct{})
		a.grants[capability] = holders
	}
	holders[addr] = struct{}{}
}

// Revoke removes the capability from the address.
func (a *Authority) Revoke(capability Capability, addr [20]byte) {
	if a == nil {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if holders, ok := a.grants[capability]; ok {
		delete(holders, addr)
	}
}

// Allowed reports whether the address holds the capability. Admin holders
// implicitly satisfy the pauser capability.
func (a *Authority) Allowed(capability Capability, addr [20]byte) bool {
	if a == nil {
		return false
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	if holders, ok := a.grants[capability]; ok {
		if _, held := holders[addr]; held {
			return true
		}
	}
	if capability == CapabilityPauser {
		if holders, ok := a.grants[CapabilityAdmin]; ok {
			_, held := holders[addr]
			return held
		}
	}
	return false
}
