package board

import (
	"fmt"
	"io"
)

// NVRAM is the non-volatile memory the event store lives in. The AT24Cxx
// driver, an os.File and the in-memory test device all satisfy it.
type NVRAM interface {
	io.ReaderAt
	io.WriterAt
}

// Non-volatile layout. One init record at offset 0, a 16-bit count of
// stored reset events, then ten records with slot 0 the most recent.
// The count is two bytes on the wire (it never exceeds 10); changing its
// width would shift the ring and corrupt existing stores.
const (
	StoreSize  = 1024
	RingSlots  = 10
	initOffset = 0
	countOff   = EventSize
	ringOff    = EventSize + 2
)

// Store reads and writes event records at fixed NVRAM offsets.
type Store struct {
	mem     NVRAM
	version string
}

// NewStore returns a store over mem. version is stamped into every record
// the store writes.
func NewStore(mem NVRAM, version string) *Store {
	return &Store{mem: mem, version: version}
}

// Init clears the whole region and writes the initialization marker:
// an acknowledged reason-0 event stamped with now.
func (s *Store) Init(now int32) error {
	zero := make([]byte, StoreSize)
	if _, err := s.mem.WriteAt(zero, 0); err != nil {
		return fmt.Errorf("clear store: %w", err)
	}
	ev := Event{Version: s.version, Time: now, Ack: true, Reason: ReasonInit}
	return s.writeEvent(initOffset, ev)
}

// InitEvent reads the initialization marker.
func (s *Store) InitEvent() (Event, error) {
	return s.readEvent(initOffset)
}

// Count returns the number of stored reset events, saturated at RingSlots.
func (s *Store) Count() (int, error) {
	var b [2]byte
	if _, err := s.mem.ReadAt(b[:], countOff); err != nil {
		return 0, fmt.Errorf("read count: %w", err)
	}
	n := int(b[0]) | int(b[1])<<8
	if n > RingSlots {
		n = RingSlots
	}
	return n, nil
}

func (s *Store) writeCount(n int) error {
	if n > RingSlots {
		n = RingSlots
	}
	b := [2]byte{byte(n), byte(n >> 8)}
	if _, err := s.mem.WriteAt(b[:], countOff); err != nil {
		return fmt.Errorf("write count: %w", err)
	}
	return nil
}

// ReadSlot reads ring slot i. An empty slot reads as a null event.
func (s *Store) ReadSlot(i int) (Event, error) {
	if i < 0 || i >= RingSlots {
		return Event{}, fmt.Errorf("slot %d out of range", i)
	}
	return s.readEvent(ringOff + int64(i)*EventSize)
}

// WriteSlot overwrites ring slot i.
func (s *Store) WriteSlot(i int, ev Event) error {
	if i < 0 || i >= RingSlots {
		return fmt.Errorf("slot %d out of range", i)
	}
	return s.writeEvent(ringOff+int64(i)*EventSize, ev)
}

// Push inserts ev at slot 0, shifting existing records toward the older
// slots. The oldest record falls off once all ten slots are used; the
// count saturates at RingSlots.
func (s *Store) Push(ev Event) error {
	for i := RingSlots - 2; i >= 0; i-- {
		old, err := s.ReadSlot(i)
		if err != nil {
			return err
		}
		if old.IsNull() {
			continue
		}
		if err := s.WriteSlot(i+1, old); err != nil {
			return err
		}
	}
	if ev.Version == "" {
		ev.Version = s.version
	}
	if err := s.WriteSlot(0, ev); err != nil {
		return err
	}
	n, err := s.Count()
	if err != nil {
		return err
	}
	return s.writeCount(n + 1)
}

// Acknowledge sets the acknowledgement bit on ring slot i. Acknowledging
// an already-acknowledged slot rewrites the same bytes.
func (s *Store) Acknowledge(i int) error {
	ev, err := s.ReadSlot(i)
	if err != nil {
		return err
	}
	ev.Ack = true
	return s.WriteSlot(i, ev)
}

func (s *Store) readEvent(off int64) (Event, error) {
	var buf [EventSize]byte
	if _, err := s.mem.ReadAt(buf[:], off); err != nil {
		return Event{}, fmt.Errorf("read event at %d: %w", off, err)
	}
	return UnmarshalEvent(buf[:])
}

func (s *Store) writeEvent(off int64, ev Event) error {
	var buf [EventSize]byte
	if err := ev.Marshal(buf[:]); err != nil {
		return err
	}
	if _, err := s.mem.WriteAt(buf[:], off); err != nil {
		return fmt.Errorf("write event at %d: %w", off, err)
	}
	return nil
}
