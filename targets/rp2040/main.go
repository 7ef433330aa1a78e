//go:build rp2040 || rp2350

// NanoWatchdog firmware for RP2040-class boards. The portable state
// machine lives in the board package; this binding maps it onto the USB
// CDC serial, four GPIO outputs and an AT24Cxx I2C EEPROM.
package main

import (
	"machine"
	"time"

	"tinygo.org/x/drivers/at24cx"

	"nanowatchdog/board"
)

// Pin assignment for the reference carrier.
const (
	pinStartLED = machine.GP2
	pinPingLED  = machine.GP3
	pinResetLED = machine.GP4
	pinRelay    = machine.GP5
)

// pinOutputs drives the LEDs and the reset relay.
type pinOutputs struct {
	start, ping, reset, relay machine.Pin
}

func (o *pinOutputs) StartLED(on bool) { o.start.Set(on) }
func (o *pinOutputs) PingLED(on bool)  { o.ping.Set(on) }
func (o *pinOutputs) ResetLED(on bool) { o.reset.Set(on) }
func (o *pinOutputs) Relay(c bool)     { o.relay.Set(c) }

func main() {
	outs := &pinOutputs{
		start: pinStartLED,
		ping:  pinPingLED,
		reset: pinResetLED,
		relay: pinRelay,
	}
	for _, p := range []machine.Pin{outs.start, outs.ping, outs.reset, outs.relay} {
		p.Configure(machine.PinConfig{Mode: machine.PinOutput})
		p.Low()
	}

	if err := machine.I2C0.Configure(machine.I2CConfig{}); err != nil {
		// Without the EEPROM there is no event history; blink the RESET
		// LED forever rather than pretend to persist.
		for {
			outs.ResetLED(true)
			time.Sleep(200 * time.Millisecond)
			outs.ResetLED(false)
			time.Sleep(200 * time.Millisecond)
		}
	}
	eeprom := at24cx.New(machine.I2C0)
	eeprom.Configure(at24cx.Config{})

	store := board.NewStore(&eeprom, board.Version)
	boot := time.Now()
	uptime := func() int64 { return int64(time.Since(boot) / time.Second) }
	b := board.New(store, outs, uptime, time.Sleep)
	interp := board.NewInterpreter(b)

	serial := machine.Serial
	var lb board.LineBuffer

	// One pass per iteration: drain any buffered serial bytes, dispatch
	// a completed line, then evaluate the watchdog. Never blocks on the
	// serial read.
	for {
		for serial.Buffered() > 0 {
			c, err := serial.ReadByte()
			if err != nil {
				break
			}
			if line, ok := lb.Feed(c); ok {
				interp.Exec(line, serial)
			}
		}
		b.Tick()
		time.Sleep(5 * time.Millisecond)
	}
}
