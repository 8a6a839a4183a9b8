package smartgadget

// Characteristic is one discovered characteristic: its declaration and
// value handles and its property bits.
type Characteristic struct {
	DeclHandle  uint16 `json:"declHandle"`
	ValueHandle uint16 `json:"valueHandle"`
	Properties  uint8  `json:"properties"`
}

// Discovery is a snapshot of one peripheral's discovered GATT table,
// keyed by UUID string.
type Discovery struct {
	Services        map[string][2]uint16      `json:"services"`
	Characteristics map[string]Characteristic `json:"characteristics"`
}

// DiscoveryCache persists discovery snapshots across sessions so that a
// reconnecting client can skip live discovery.
type DiscoveryCache interface {
	Store(Addr, Discovery, bool) error
	Load(Addr) (Discovery, error)
	Clear() error
}
