//go:build linux

// NanoWatchdog board hosted on a Raspberry Pi-class SBC: the same state
// machine as the microcontroller firmware, wired to periph.io GPIO for
// the LEDs and relay, a tty for the command line, and a 1024-byte file
// as the non-volatile store.
package main

import (
	"flag"
	"log"
	"os"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"

	"nanowatchdog/board"
	"nanowatchdog/host/serial"
)

var (
	device   = flag.String("device", "/dev/ttyGS0", "serial device carrying the command line")
	nvram    = flag.String("nvram", "/var/lib/nanowatchdog/nvram", "1024-byte event store file")
	startPin = flag.String("start-led", "GPIO17", "START LED pin")
	pingPin  = flag.String("ping-led", "GPIO27", "PING LED pin")
	resetPin = flag.String("reset-led", "GPIO22", "RESET LED pin")
	relayPin = flag.String("relay", "GPIO23", "reset relay pin")
)

type gpioOutputs struct {
	start, ping, reset, relay gpio.PinIO
}

func (o *gpioOutputs) StartLED(on bool) { _ = o.start.Out(gpio.Level(on)) }
func (o *gpioOutputs) PingLED(on bool)  { _ = o.ping.Out(gpio.Level(on)) }
func (o *gpioOutputs) ResetLED(on bool) { _ = o.reset.Out(gpio.Level(on)) }
func (o *gpioOutputs) Relay(c bool)     { _ = o.relay.Out(gpio.Level(c)) }

func main() {
	flag.Parse()

	if _, err := host.Init(); err != nil {
		log.Fatalf("periph init: %v", err)
	}
	outs := &gpioOutputs{
		start: mustPin(*startPin),
		ping:  mustPin(*pingPin),
		reset: mustPin(*resetPin),
		relay: mustPin(*relayPin),
	}
	for _, p := range []gpio.PinIO{outs.start, outs.ping, outs.reset, outs.relay} {
		if err := p.Out(gpio.Low); err != nil {
			log.Fatalf("pin %s: %v", p, err)
		}
	}

	mem, err := openNVRAM(*nvram)
	if err != nil {
		log.Fatalf("nvram: %v", err)
	}
	defer mem.Close()
	store := board.NewStore(mem, board.Version)

	port, err := serial.Open(serial.DefaultConfig(*device))
	if err != nil {
		log.Fatalf("serial: %v", err)
	}
	defer port.Close()

	boot := time.Now()
	uptime := func() int64 { return int64(time.Since(boot) / time.Second) }
	b := board.New(store, outs, uptime, time.Sleep)
	interp := board.NewInterpreter(b)

	var lb board.LineBuffer
	buf := make([]byte, 64)
	// The 100 ms read timeout paces the loop: each pass drains whatever
	// arrived, dispatches at most the completed lines, then evaluates
	// the watchdog.
	for {
		n, _ := port.Read(buf)
		for _, c := range buf[:n] {
			if line, ok := lb.Feed(c); ok {
				interp.Exec(line, port)
			}
		}
		b.Tick()
	}
}

func mustPin(name string) gpio.PinIO {
	p := gpioreg.ByName(name)
	if p == nil {
		log.Fatalf("unknown GPIO pin %q", name)
	}
	return p
}

// openNVRAM opens the event store file, growing it to the full store
// size on first use.
func openNVRAM(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if info.Size() < board.StoreSize {
		if err := f.Truncate(board.StoreSize); err != nil {
			f.Close()
			return nil, err
		}
	}
	return f, nil
}
