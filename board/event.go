package board

import (
	"encoding/binary"
	"fmt"
)

// Reset reason codes. 0..15 are reserved for the board itself; 16..127
// identify the external caller that requested the reset.
const (
	ReasonInit       = 0
	ReasonMissedPing = 1

	ReasonExternalMin = 16
	ReasonExternalMax = 127
)

const (
	// EventSize is the serialized size of one event record.
	EventSize = 37
	// VersionLen is the size of the null-padded version field.
	VersionLen = 32
)

// Event is one persisted reset record.
//
// Wire layout (little-endian):
//
//	[0:32]  version, ASCII, null-padded
//	[32:36] time, seconds since epoch, signed 32-bit; 0 means "null slot"
//	[36]    bit 7 = acknowledged, bits 6..0 = reason code
type Event struct {
	Version string
	Time    int32
	Ack     bool
	Reason  uint8
}

// IsNull reports whether the record is an empty slot.
func (e Event) IsNull() bool {
	return e.Time == 0
}

// Marshal serializes the event into buf, which must hold EventSize bytes.
func (e Event) Marshal(buf []byte) error {
	if len(buf) < EventSize {
		return fmt.Errorf("event buffer too small: %d bytes", len(buf))
	}
	if e.Reason > 0x7f {
		return fmt.Errorf("reason %d out of range", e.Reason)
	}
	for i := 0; i < VersionLen; i++ {
		if i < len(e.Version) {
			buf[i] = e.Version[i]
		} else {
			buf[i] = 0
		}
	}
	binary.LittleEndian.PutUint32(buf[VersionLen:], uint32(e.Time))
	packed := e.Reason & 0x7f
	if e.Ack {
		packed |= 0x80
	}
	buf[VersionLen+4] = packed
	return nil
}

// UnmarshalEvent decodes one event record from buf.
func UnmarshalEvent(buf []byte) (Event, error) {
	if len(buf) < EventSize {
		return Event{}, fmt.Errorf("event buffer too small: %d bytes", len(buf))
	}
	n := 0
	for n < VersionLen && buf[n] != 0 {
		n++
	}
	packed := buf[VersionLen+4]
	return Event{
		Version: string(buf[:n]),
		Time:    int32(binary.LittleEndian.Uint32(buf[VersionLen:])),
		Ack:     packed&0x80 != 0,
		Reason:  packed & 0x7f,
	}, nil
}

// ReasonLabel returns the human-readable label used by STATUS and
// EEPROM DUMP output.
func ReasonLabel(r uint8) string {
	switch {
	case r == ReasonInit:
		return "initialization"
	case r == ReasonMissedPing:
		return "missed ping"
	case r >= ReasonExternalMin && r <= ReasonExternalMax:
		return "external command"
	}
	return "unknown"
}
