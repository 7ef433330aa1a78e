package board

import (
	"fmt"
	"testing"
)

// memNVRAM is a 1024-byte in-memory device standing in for the EEPROM.
type memNVRAM struct {
	b [StoreSize]byte
}

func (m *memNVRAM) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 || off >= StoreSize {
		return 0, fmt.Errorf("read offset %d out of range", off)
	}
	return copy(p, m.b[off:]), nil
}

func (m *memNVRAM) WriteAt(p []byte, off int64) (int, error) {
	if off < 0 || off >= StoreSize {
		return 0, fmt.Errorf("write offset %d out of range", off)
	}
	return copy(m.b[off:], p), nil
}

func newTestStore() (*Store, *memNVRAM) {
	mem := &memNVRAM{}
	return NewStore(mem, Version), mem
}

func TestStoreInit(t *testing.T) {
	s, mem := newTestStore()
	// Dirty the region first so Init provably clears it.
	for i := range mem.b {
		mem.b[i] = 0xAA
	}
	if err := s.Init(1700000000); err != nil {
		t.Fatal(err)
	}

	ev, err := s.InitEvent()
	if err != nil {
		t.Fatal(err)
	}
	if ev.Reason != ReasonInit || !ev.Ack || ev.Time != 1700000000 {
		t.Errorf("init event = %+v", ev)
	}

	n, err := s.Count()
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("count after init = %d, want 0", n)
	}
	for i := 0; i < RingSlots; i++ {
		ev, err := s.ReadSlot(i)
		if err != nil {
			t.Fatal(err)
		}
		if !ev.IsNull() {
			t.Errorf("slot %d not null after init: %+v", i, ev)
		}
	}
}

func TestStorePushShiftsAndSaturates(t *testing.T) {
	s, _ := newTestStore()
	if err := s.Init(1); err != nil {
		t.Fatal(err)
	}

	// Push eleven events; the first one pushed must fall off the end.
	for i := 1; i <= RingSlots+1; i++ {
		ev := Event{Time: int32(1000 + i), Reason: ReasonMissedPing}
		if err := s.Push(ev); err != nil {
			t.Fatalf("push %d: %v", i, err)
		}
	}

	n, err := s.Count()
	if err != nil {
		t.Fatal(err)
	}
	if n != RingSlots {
		t.Errorf("count = %d, want %d", n, RingSlots)
	}

	// Slot 0 is the newest, slot 9 the oldest surviving record.
	for i := 0; i < RingSlots; i++ {
		ev, err := s.ReadSlot(i)
		if err != nil {
			t.Fatal(err)
		}
		want := int32(1000 + RingSlots + 1 - i)
		if ev.Time != want {
			t.Errorf("slot %d time = %d, want %d", i, ev.Time, want)
		}
	}
}

func TestStorePartialRing(t *testing.T) {
	s, _ := newTestStore()
	if err := s.Init(1); err != nil {
		t.Fatal(err)
	}
	for i := 1; i <= 3; i++ {
		if err := s.Push(Event{Time: int32(i), Reason: 22}); err != nil {
			t.Fatal(err)
		}
	}
	n, _ := s.Count()
	if n != 3 {
		t.Errorf("count = %d, want 3", n)
	}
	for i := 3; i < RingSlots; i++ {
		ev, _ := s.ReadSlot(i)
		if !ev.IsNull() {
			t.Errorf("slot %d should still be null", i)
		}
	}
}

func TestAcknowledgeIdempotent(t *testing.T) {
	s, mem := newTestStore()
	if err := s.Init(1); err != nil {
		t.Fatal(err)
	}
	if err := s.Push(Event{Time: 42, Reason: 22}); err != nil {
		t.Fatal(err)
	}

	if err := s.Acknowledge(0); err != nil {
		t.Fatal(err)
	}
	snapshot := mem.b
	if err := s.Acknowledge(0); err != nil {
		t.Fatal(err)
	}
	if mem.b != snapshot {
		t.Errorf("second acknowledge changed persisted bytes")
	}

	ev, _ := s.ReadSlot(0)
	if !ev.Ack {
		t.Errorf("slot 0 not acknowledged")
	}
}

func TestSlotBounds(t *testing.T) {
	s, _ := newTestStore()
	if _, err := s.ReadSlot(-1); err == nil {
		t.Errorf("ReadSlot(-1) should fail")
	}
	if _, err := s.ReadSlot(RingSlots); err == nil {
		t.Errorf("ReadSlot(%d) should fail", RingSlots)
	}
	if err := s.Acknowledge(RingSlots); err == nil {
		t.Errorf("Acknowledge(%d) should fail", RingSlots)
	}
}
