package as5600

import (
	"bytes"
	"errors"
	"testing"
	"time"
)

// tx is one expected bus transaction. For a write-then-read, r holds the bytes
// the device answers with.
type tx struct {
	addr uint16
	w    []byte
	r    []byte
	err  error
}

func writeRead(w, r []byte) tx { return tx{addr: DefaultAddress, w: w, r: r} }
func write(w ...byte) tx       { return tx{addr: DefaultAddress, w: w} }

// scriptBus replays a fixed list of transactions and fails the test on any
// deviation.
type scriptBus struct {
	t      *testing.T
	script []tx
	next   int
}

func newScriptBus(t *testing.T, script ...tx) *scriptBus {
	t.Helper()
	return &scriptBus{t: t, script: script}
}

func (b *scriptBus) Tx(addr uint16, w, r []byte) error {
	b.t.Helper()
	if b.next >= len(b.script) {
		b.t.Fatalf("unexpected transaction %d: addr=0x%02x w=%x len(r)=%d", b.next, addr, w, len(r))
	}
	want := b.script[b.next]
	b.next++

	if addr != want.addr {
		b.t.Fatalf("transaction %d: addr = 0x%02x, want 0x%02x", b.next-1, addr, want.addr)
	}
	if !bytes.Equal(w, want.w) {
		b.t.Fatalf("transaction %d: wrote %x, want %x", b.next-1, w, want.w)
	}
	if len(r) != len(want.r) {
		b.t.Fatalf("transaction %d: read %d bytes, want %d", b.next-1, len(r), len(want.r))
	}
	if want.err != nil {
		return want.err
	}
	copy(r, want.r)
	return nil
}

// done fails the test if part of the script was not consumed.
func (b *scriptBus) done() {
	b.t.Helper()
	if b.next != len(b.script) {
		b.t.Errorf("%d of %d transactions were not issued", len(b.script)-b.next, len(b.script))
	}
}

// writes counts the write-only transactions that were issued.
func (b *scriptBus) writes() int {
	n := 0
	for _, x := range b.script[:b.next] {
		if len(x.r) == 0 {
			n++
		}
	}
	return n
}

// recordingDelay records every requested wait instead of sleeping.
type recordingDelay struct {
	waits []time.Duration
}

func (r *recordingDelay) Sleep(d time.Duration) { r.waits = append(r.waits, d) }

func newTestDev(t *testing.T, bus Bus, delay Delayer) *Dev {
	t.Helper()
	d, err := New(bus, &Opts{Delay: delay})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return d
}

var errBus = errors.New("nack")
