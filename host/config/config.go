// Package config holds the supervisor's parameter record. Every field
// carries the origin of its current value so that runtime and
// command-line settings survive a configuration reload, and so that
// DUMP PARMS can report where each value came from.
package config

import (
	"fmt"
	"log"
	"strconv"
	"strings"
)

// Origin says where a parameter value came from. Higher origins take
// precedence: a reload from the configuration file never overwrites a
// command-line or runtime setting.
type Origin int

const (
	OriginDefault Origin = iota
	OriginConfig
	OriginCmdline
	OriginRuntime
)

func (o Origin) String() string {
	switch o {
	case OriginConfig:
		return "config-file"
	case OriginCmdline:
		return "command-line"
	case OriginRuntime:
		return "runtime"
	}
	return "default"
}

type IntParam struct {
	Value  int
	Origin Origin
}

type BoolParam struct {
	Value  bool
	Origin Origin
}

type StrParam struct {
	Value  string
	Origin Origin
}

type ListParam struct {
	Values []string
	Origin Origin
}

// Params is the supervisor configuration record. It is owned by the
// supervisor and never shared across goroutines.
type Params struct {
	Device      StrParam
	Baudrate    IntParam
	OpenTimeout IntParam
	ReadTimeout IntParam

	IP         StrParam
	PortBoard  IntParam // config key "port-serial": the board-forward listener
	PortDaemon IntParam // the supervisor-command listener

	Delay    IntParam
	Interval IntParam
	Logtick  IntParam

	PidFile    StrParam
	StatusFile StrParam

	SendMail StrParam // never / auto / always
	SendFrom StrParam
	Admin    StrParam

	MaxLoad1       IntParam
	MaxLoad5       IntParam
	MaxLoad15      IntParam
	MinMemory      IntParam // in 4-KiB pages, compared against SwapFree/4
	MaxTemperature IntParam

	Pidfiles      ListParam
	PingHosts     ListParam
	Interfaces    ListParam
	TestDirectory StrParam
	Include       StrParam

	Ping    BoolParam // "nwping": periodic board pinging
	Action  BoolParam // reboot on failed check vs. log only
	Serial  BoolParam // serial layer enabled
	Daemon  BoolParam
	Force   BoolParam // accept out-of-range values instead of clamping
	Verbose IntParam
}

// New returns the default configuration.
func New() *Params {
	return &Params{
		Device:         StrParam{Value: "/dev/ttyUSB0"},
		Baudrate:       IntParam{Value: 19200},
		OpenTimeout:    IntParam{Value: 10},
		ReadTimeout:    IntParam{Value: 5},
		IP:             StrParam{Value: "127.0.0.1"},
		PortBoard:      IntParam{Value: 7777},
		PortDaemon:     IntParam{Value: 7778},
		Delay:          IntParam{Value: 60},
		Interval:       IntParam{Value: 10},
		Logtick:        IntParam{Value: 10},
		SendMail:       StrParam{Value: "auto"},
		SendFrom:       StrParam{Value: "root"},
		MaxTemperature: IntParam{Value: 90},
		Ping:           BoolParam{Value: true},
		Action:         BoolParam{Value: true},
		Serial:         BoolParam{Value: true},
	}
}

// MaxLoad5Effective applies the derived default: three quarters of
// max-load-1 unless max-load-5 was set explicitly. Zero disables.
func (p *Params) MaxLoad5Effective() int {
	if p.MaxLoad5.Origin != OriginDefault {
		return p.MaxLoad5.Value
	}
	return p.MaxLoad1.Value * 3 / 4
}

// MaxLoad15Effective applies the derived default: half of max-load-1
// unless max-load-15 was set explicitly. Zero disables.
func (p *Params) MaxLoad15Effective() int {
	if p.MaxLoad15.Origin != OriginDefault {
		return p.MaxLoad15.Value
	}
	return p.MaxLoad1.Value / 2
}

// descriptor binds an external parameter name to its field.
type descriptor struct {
	name string
	get  func(*Params) (string, Origin)
	set  func(*Params, string, Origin, bool) error
}

func intDesc(name string, f func(*Params) *IntParam, min, max int) descriptor {
	return descriptor{
		name: name,
		get: func(p *Params) (string, Origin) {
			v := f(p)
			return strconv.Itoa(v.Value), v.Origin
		},
		set: func(p *Params, s string, o Origin, force bool) error {
			n, err := strconv.Atoi(s)
			if err != nil {
				return fmt.Errorf("%s: %q is not an integer", name, s)
			}
			if !force {
				if n < min {
					log.Printf("config: %s=%d below minimum, clamped to %d", name, n, min)
					n = min
				} else if n > max {
					log.Printf("config: %s=%d above maximum, clamped to %d", name, n, max)
					n = max
				}
			}
			apply(f(p), n, o)
			return nil
		},
	}
}

func boolDesc(name string, f func(*Params) *BoolParam) descriptor {
	return descriptor{
		name: name,
		get: func(p *Params) (string, Origin) {
			v := f(p)
			return strconv.FormatBool(v.Value), v.Origin
		},
		set: func(p *Params, s string, o Origin, _ bool) error {
			b, err := strconv.ParseBool(s)
			if err != nil {
				return fmt.Errorf("%s: %q is not a boolean", name, s)
			}
			applyBool(f(p), b, o)
			return nil
		},
	}
}

func strDesc(name string, f func(*Params) *StrParam) descriptor {
	return descriptor{
		name: name,
		get: func(p *Params) (string, Origin) {
			v := f(p)
			return v.Value, v.Origin
		},
		set: func(p *Params, s string, o Origin, _ bool) error {
			applyStr(f(p), s, o)
			return nil
		},
	}
}

func listDesc(name string, f func(*Params) *ListParam) descriptor {
	return descriptor{
		name: name,
		get: func(p *Params) (string, Origin) {
			v := f(p)
			return strings.Join(v.Values, ","), v.Origin
		},
		set: func(p *Params, s string, o Origin, _ bool) error {
			v := f(p)
			if o < v.Origin {
				return nil
			}
			v.Values = append(v.Values, s)
			v.Origin = o
			return nil
		},
	}
}

func apply(p *IntParam, v int, o Origin) {
	if o < p.Origin {
		return
	}
	p.Value = v
	p.Origin = o
}

func applyBool(p *BoolParam, v bool, o Origin) {
	if o < p.Origin {
		return
	}
	p.Value = v
	p.Origin = o
}

func applyStr(p *StrParam, v string, o Origin) {
	if o < p.Origin {
		return
	}
	p.Value = v
	p.Origin = o
}

// descriptors lists every external parameter in DUMP PARMS order.
func descriptors() []descriptor {
	return []descriptor{
		strDesc("device", func(p *Params) *StrParam { return &p.Device }),
		intDesc("baudrate", func(p *Params) *IntParam { return &p.Baudrate }, 300, 115200),
		intDesc("open-timeout", func(p *Params) *IntParam { return &p.OpenTimeout }, 1, 60),
		intDesc("read-timeout", func(p *Params) *IntParam { return &p.ReadTimeout }, 1, 60),
		strDesc("ip", func(p *Params) *StrParam { return &p.IP }),
		intDesc("port-serial", func(p *Params) *IntParam { return &p.PortBoard }, 1, 65535),
		intDesc("port-daemon", func(p *Params) *IntParam { return &p.PortDaemon }, 1, 65535),
		intDesc("delay", func(p *Params) *IntParam { return &p.Delay }, 1, 65535),
		intDesc("interval", func(p *Params) *IntParam { return &p.Interval }, 5, 60),
		intDesc("logtick", func(p *Params) *IntParam { return &p.Logtick }, 1, 1440),
		strDesc("pid-file", func(p *Params) *StrParam { return &p.PidFile }),
		strDesc("status-file", func(p *Params) *StrParam { return &p.StatusFile }),
		{
			name: "send-mail",
			get: func(p *Params) (string, Origin) {
				return p.SendMail.Value, p.SendMail.Origin
			},
			set: func(p *Params, s string, o Origin, _ bool) error {
				switch s {
				case "never", "auto", "always":
					applyStr(&p.SendMail, s, o)
					return nil
				}
				return fmt.Errorf("send-mail: %q is not never/auto/always", s)
			},
		},
		strDesc("send-from", func(p *Params) *StrParam { return &p.SendFrom }),
		strDesc("admin", func(p *Params) *StrParam { return &p.Admin }),
		intDesc("max-load-1", func(p *Params) *IntParam { return &p.MaxLoad1 }, 0, 1000),
		intDesc("max-load-5", func(p *Params) *IntParam { return &p.MaxLoad5 }, 0, 1000),
		intDesc("max-load-15", func(p *Params) *IntParam { return &p.MaxLoad15 }, 0, 1000),
		intDesc("min-memory", func(p *Params) *IntParam { return &p.MinMemory }, 0, 1<<30),
		intDesc("max-temperature", func(p *Params) *IntParam { return &p.MaxTemperature }, 1, 150),
		listDesc("pidfile", func(p *Params) *ListParam { return &p.Pidfiles }),
		listDesc("ping", func(p *Params) *ListParam { return &p.PingHosts }),
		listDesc("interface", func(p *Params) *ListParam { return &p.Interfaces }),
		strDesc("test-directory", func(p *Params) *StrParam { return &p.TestDirectory }),
		strDesc("include", func(p *Params) *StrParam { return &p.Include }),
		boolDesc("nwping", func(p *Params) *BoolParam { return &p.Ping }),
		boolDesc("action", func(p *Params) *BoolParam { return &p.Action }),
		boolDesc("serial", func(p *Params) *BoolParam { return &p.Serial }),
		boolDesc("daemon", func(p *Params) *BoolParam { return &p.Daemon }),
		boolDesc("force", func(p *Params) *BoolParam { return &p.Force }),
		{
			name: "verbose",
			get: func(p *Params) (string, Origin) {
				return strconv.Itoa(p.Verbose.Value), p.Verbose.Origin
			},
			set: func(p *Params, s string, o Origin, _ bool) error {
				n, err := ParseVerbose(s)
				if err != nil {
					return err
				}
				apply(&p.Verbose, n, o)
				return nil
			},
		},
	}
}

// ParseVerbose parses a verbosity level in decimal, 0x hexadecimal or 0b
// binary form. Go base-prefix rules apply, so a leading 0 or 0o reads as
// octal ("010" is 8).
func ParseVerbose(s string) (int, error) {
	n, err := strconv.ParseInt(s, 0, 32)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("verbose: %q is not a level", s)
	}
	return int(n), nil
}

// Set assigns a named parameter. Lower-precedence origins never
// overwrite higher ones; out-of-range integers are clamped unless force
// is set. Unknown names are an error.
func (p *Params) Set(name, value string, origin Origin, force bool) error {
	for _, d := range descriptors() {
		if d.name == name {
			return d.set(p, value, origin, force)
		}
	}
	return fmt.Errorf("unknown parameter %q", name)
}

// Get renders "name=value" for a known parameter, or "" for an unknown
// one.
func (p *Params) Get(name string) string {
	for _, d := range descriptors() {
		if d.name == name {
			v, _ := d.get(p)
			return name + "=" + v
		}
	}
	return ""
}

// DumpParms renders the full parameter table with values and origins.
func (p *Params) DumpParms() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%-16s %-28s %s\n", "parameter", "value", "origin")
	for _, d := range descriptors() {
		v, o := d.get(p)
		fmt.Fprintf(&b, "%-16s %-28s %s\n", d.name, v, o)
	}
	return b.String()
}
