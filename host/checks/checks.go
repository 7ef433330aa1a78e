// Package checks runs the supervisor's liveness probes. The pipeline is
// ordered and short-circuits: the first probe that trips decides the
// reboot reason and the rest are skipped until the next interval.
package checks

import (
	"log"

	"nanowatchdog/host/config"
)

// Reason codes reported to the board, one per probe.
const (
	ReasonLoad1     = 16
	ReasonLoad5     = 17
	ReasonLoad15    = 18
	ReasonMemory    = 19
	ReasonTemp      = 20
	ReasonPidfile   = 21
	ReasonPing      = 22
	ReasonInterface = 23
)

// Result is the pipeline outcome for one interval.
type Result struct {
	Reboot bool
	Reason uint8
	Check  string
	Detail string
}

// Checker evaluates the probe pipeline against a configuration record.
// The data sources are injectable so tests can point the probes at fake
// /proc and /sys trees and deterministic ping/process-liveness
// functions.
type Checker struct {
	Cfg *config.Params

	// ProcRoot and SysRoot prefix the kernel interfaces read by the
	// probes. Defaults: /proc and /sys.
	ProcRoot string
	SysRoot  string

	// Pinger reports whether one ICMP probe of host succeeded.
	Pinger func(host string) bool

	// Alive reports whether pid is a live process.
	Alive func(pid int) bool
}

// New returns a checker over cfg with the real data sources.
func New(cfg *config.Params) *Checker {
	return &Checker{
		Cfg:      cfg,
		ProcRoot: "/proc",
		SysRoot:  "/sys",
		Pinger:   execPing,
		Alive:    pidAlive,
	}
}

// Run evaluates the probes in order. A probe whose data source cannot be
// read reports no; most probes log the condition, while the temperature
// probe skips unreadable zones silently. The pipeline re-runs every
// interval anyway.
func (c *Checker) Run() Result {
	type probe struct {
		name string
		fn   func() (bool, uint8, string)
	}
	probes := []probe{
		{"memory", c.checkMemory},
		{"load", c.checkLoad},
		{"temperature", c.checkTemperature},
		{"pidfile", c.checkPidfiles},
		{"ping", c.checkPing},
		{"interface", c.checkInterfaces},
		{"test-directory", c.checkTestDirectory},
	}
	for _, p := range probes {
		hit, reason, detail := p.fn()
		if hit {
			log.Printf("checks: %s: %s", p.name, detail)
			return Result{Reboot: true, Reason: reason, Check: p.name, Detail: detail}
		}
	}
	return Result{}
}
