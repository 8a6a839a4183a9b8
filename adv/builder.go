package adv

// Builder crafts an advertising payload field by field, for peripherals
// and test fixtures.
type Builder struct {
	b []byte
}

// A Field appends one record to a payload under construction.
type Field func(b *Builder) error

// NewPacket assembles an advertising payload from fields.
func NewPacket(fields ...Field) ([]byte, error) {
	b := &Builder{b: make([]byte, 0, MaxPacketLength)}
	for _, f := range fields {
		if err := f(b); err != nil {
			return nil, err
		}
	}
	return b.b, nil
}

func (b *Builder) append(typ byte, data []byte) error {
	if len(b.b)+1+1+len(data) > MaxPacketLength {
		return ErrNotFit
	}
	b.b = append(b.b, byte(len(data)+1))
	b.b = append(b.b, typ)
	b.b = append(b.b, data...)
	return nil
}

// Raw appends pre-encoded bytes to the payload.
func Raw(data []byte) Field {
	return func(b *Builder) error {
		if len(b.b)+len(data) > MaxPacketLength {
			return ErrNotFit
		}
		b.b = append(b.b, data...)
		return nil
	}
}

// Flags appends a flags record.
func Flags(f byte) Field {
	return func(b *Builder) error {
		return b.append(types.flags, []byte{f})
	}
}

// ShortName appends a shortened local name record.
func ShortName(n string) Field {
	return func(b *Builder) error {
		return b.append(types.nameshort, []byte(n))
	}
}

// CompleteName appends a complete local name record.
func CompleteName(n string) Field {
	return func(b *Builder) error {
		return b.append(types.namecomp, []byte(n))
	}
}

// AllUUID appends a little-endian service UUID to the complete list of
// its width. 2, 4 and 16 byte UUIDs are supported.
func AllUUID(u []byte) Field {
	return func(b *Builder) error {
		switch len(u) {
		case 2:
			return b.append(types.uuid16comp, u)
		case 4:
			return b.append(types.uuid32comp, u)
		default:
			return b.append(types.uuid128comp, u)
		}
	}
}

// SomeUUID appends a little-endian service UUID to the incomplete list
// of its width.
func SomeUUID(u []byte) Field {
	return func(b *Builder) error {
		switch len(u) {
		case 2:
			return b.append(types.uuid16inc, u)
		case 4:
			return b.append(types.uuid32inc, u)
		default:
			return b.append(types.uuid128inc, u)
		}
	}
}

// TxPower appends a tx power level record.
func TxPower(pwr int8) Field {
	return func(b *Builder) error {
		return b.append(types.txpwr, []byte{byte(pwr)})
	}
}

// ManufacturerData appends a manufacturer specific data record.
func ManufacturerData(id uint16, data []byte) Field {
	return func(b *Builder) error {
		d := append([]byte{uint8(id), uint8(id >> 8)}, data...)
		return b.append(types.mfgdata, d)
	}
}
