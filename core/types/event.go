package types

// Event represents a typed record emitted during a state transition. The
// attribute map carries string-encoded values so downstream observers can
// consume events without knowing module internals.
type Event struct {
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
}
