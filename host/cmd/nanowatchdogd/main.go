// Command nanowatchdogd supervises a NanoWatchdog board: it arms the
// board over the serial line, pings it while the host passes its health
// checks, and exposes two line-oriented TCP endpoints for operators.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"nanowatchdog/board"
	"nanowatchdog/host/checks"
	"nanowatchdog/host/client"
	"nanowatchdog/host/config"
	"nanowatchdog/host/serial"
	"nanowatchdog/host/supervisor"
)

const defaultConfigPath = "/etc/nanowatchdog.conf"

var (
	flagHelp    = flag.Bool("help", false, "print this help and exit")
	flagVersion = flag.Bool("version", false, "print the version and exit")
	flagVerbose = flag.String("verbose", "", "verbosity level (decimal, 0x... or 0b...)")
	flagConfig  = flag.String("config", defaultConfigPath, "configuration file")

	flagDaemon   = flag.Bool("daemon", false, "run as a daemon (delegated to the init system)")
	flagNoDaemon = flag.Bool("nodaemon", false, "stay in the foreground")
	flagSerial   = flag.Bool("serial", true, "enable the serial layer")
	flagNoSerial = flag.Bool("noserial", false, "disable the serial layer (echo mode)")
	flagPing     = flag.Bool("ping", true, "enable the periodic board ping")
	flagNoPing   = flag.Bool("noping", false, "disable the periodic board ping")
	flagAction   = flag.Bool("action", true, "reboot on a failed check")
	flagNoAction = flag.Bool("noaction", false, "log failed checks without rebooting")
	flagForce    = flag.Bool("force", false, "accept out-of-range values instead of clamping")
	flagNoForce  = flag.Bool("noforce", false, "clamp out-of-range values")

	flagDevice     = flag.String("device", "", "serial device")
	flagIP         = flag.String("ip", "", "listener bind address")
	flagPortDaemon = flag.Int("port-daemon", 0, "supervisor-command listener port")
	flagPortBoard  = flag.Int("port-board", 0, "board-forward listener port")
	flagDelay      = flag.Int("delay", 0, "board reset delay in seconds")
	flagInterval   = flag.Int("interval", 0, "seconds between check cycles")

	flagSync     = flag.Bool("sync", false, "ignored, kept for watchdog compatibility")
	flagSoftboot = flag.Bool("softboot", false, "ignored, reset is always hardware")
)

func main() {
	os.Exit(run())
}

func run() int {
	flag.Usage = usage
	if len(os.Args) == 1 {
		usage()
		return 0
	}
	flag.Parse()

	if *flagHelp {
		usage()
		return 0
	}
	if *flagVersion {
		fmt.Printf("nanowatchdogd (%s)\n", board.Version)
		return 0
	}
	if *flagSync || *flagSoftboot {
		log.Printf("main: --sync and --softboot are accepted and ignored")
	}

	// Command-line values are applied first: they take precedence over
	// the file, and --force must already be in effect when the file is
	// range-checked.
	cfg := config.New()
	applyFlags(cfg)
	if err := config.Load(cfg, *flagConfig); err != nil {
		// A missing or broken file is not fatal: defaults carry on.
		log.Printf("main: %v", err)
	}

	if cfg.Daemon.Value {
		log.Printf("main: daemonization is left to the init system")
	}

	var pidFile *supervisor.PidFile
	if cfg.PidFile.Value != "" {
		var err error
		pidFile, err = supervisor.AcquirePidFile(cfg.PidFile.Value)
		if err != nil {
			log.Printf("main: %v", err)
			return 1
		}
		defer pidFile.Release()
	}

	link, err := openBoard(cfg)
	if err != nil {
		log.Printf("main: %v", err)
		return 1
	}

	checker := checks.New(cfg)
	s := supervisor.New(cfg, link, checker, supervisor.SendmailMailer{})
	s.ConfigPath = *flagConfig

	if err := s.Listen(); err != nil {
		log.Printf("main: %v", err)
		link.Close()
		return 1
	}
	s.InstallSignals()

	if !link.Disabled() {
		st, err := link.Status()
		if err != nil {
			log.Printf("main: startup status: %v", err)
		} else {
			if err := supervisor.WriteStatusSnapshot(cfg.StatusFile.Value, st.Raw); err != nil {
				log.Printf("main: status snapshot: %v", err)
			}
			s.NotifyBoot(st)
		}
	}

	return s.Run()
}

// openBoard opens the serial line and walks the board through the
// startup sequence, or returns the echoing stand-in when the serial
// layer is disabled.
func openBoard(cfg *config.Params) (*client.Client, error) {
	if !cfg.Serial.Value {
		log.Printf("main: serial layer disabled, echoing commands")
		return client.NewDisabled(), nil
	}

	port, err := serial.Open(&serial.Config{
		Device:      cfg.Device.Value,
		Baud:        cfg.Baudrate.Value,
		ReadTimeout: 100,
	})
	if err != nil {
		return nil, err
	}
	link := client.New(port, cfg.ReadTimeout.Value)
	if err := link.WaitReady(cfg.OpenTimeout.Value); err != nil {
		port.Close()
		return nil, err
	}
	if err := link.Setup(!cfg.Action.Value, time.Now().Unix(), cfg.Delay.Value); err != nil {
		port.Close()
		return nil, err
	}
	return link, nil
}

// applyFlags copies explicitly-set command-line flags into the
// configuration with command-line origin, so they survive HUP reloads.
func applyFlags(cfg *config.Params) {
	set := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })

	force := cfg.Force.Value
	if set["force"] {
		force = *flagForce
	}
	if set["noforce"] {
		force = !*flagNoForce
	}

	assign := func(name, value string) {
		if err := cfg.Set(name, value, config.OriginCmdline, force); err != nil {
			log.Printf("main: --%s: %v", name, err)
		}
	}

	if set["verbose"] {
		assign("verbose", *flagVerbose)
	}
	if set["device"] {
		assign("device", *flagDevice)
	}
	if set["ip"] {
		assign("ip", *flagIP)
	}
	if set["port-daemon"] {
		assign("port-daemon", fmt.Sprint(*flagPortDaemon))
	}
	if set["port-board"] {
		assign("port-serial", fmt.Sprint(*flagPortBoard))
	}
	if set["delay"] {
		assign("delay", fmt.Sprint(*flagDelay))
	}
	if set["interval"] {
		assign("interval", fmt.Sprint(*flagInterval))
	}

	boolFlag := func(name string, on, off bool, setOn, setOff bool) {
		if setOn {
			assign(name, fmt.Sprint(on))
		}
		if setOff {
			assign(name, fmt.Sprint(!off))
		}
	}
	boolFlag("daemon", *flagDaemon, *flagNoDaemon, set["daemon"], set["nodaemon"])
	boolFlag("serial", *flagSerial, *flagNoSerial, set["serial"], set["noserial"])
	boolFlag("nwping", *flagPing, *flagNoPing, set["ping"], set["noping"])
	boolFlag("action", *flagAction, *flagNoAction, set["action"], set["noaction"])
	boolFlag("force", *flagForce, *flagNoForce, set["force"], set["noforce"])
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: nanowatchdogd [options]\n\nOptions:\n")
	flag.PrintDefaults()
}
