// Package supervisor runs the host side of the watchdog: a strictly
// single-threaded cooperative loop multiplexing two TCP listeners, the
// serial line to the board, and the periodic health-check pipeline.
package supervisor

import (
	"fmt"
	"log"
	"net"
	"os"
	"time"

	"nanowatchdog/host/checks"
	"nanowatchdog/host/config"
)

// BoardLink is the supervisor's view of the board client. Tests swap in
// a scripted link.
type BoardLink interface {
	Send(line string) (string, error)
	Setup(testMode bool, now int64, delay int) error
	Stop() error
	Close() error
	Disabled() bool
}

// Mailer delivers the boot notifier's messages. The transport is an
// injected sink; the command wires in a sendmail pipe.
type Mailer interface {
	Send(from, to, subject, body string) error
}

// Supervisor owns the runtime state of the host process. Nothing here is
// shared across goroutines: signals arrive on a channel drained at the
// top of each loop iteration.
type Supervisor struct {
	Cfg        *config.Params
	Board      BoardLink
	Checker    *checks.Checker
	Mailer     Mailer
	ConfigPath string

	boardLn *net.TCPListener
	cmdLn   *net.TCPListener
	sigCh   chan os.Signal

	quit     bool
	exitCode int
	tick     int
	subtick  int

	sleep func(time.Duration)
	now   func() int64
}

// New assembles a supervisor. Listeners are bound separately by Listen
// so a configuration-only use (tests, DUMP PARMS handling) needs no
// sockets.
func New(cfg *config.Params, board BoardLink, checker *checks.Checker, mailer Mailer) *Supervisor {
	return &Supervisor{
		Cfg:     cfg,
		Board:   board,
		Checker: checker,
		Mailer:  mailer,
		sleep:   time.Sleep,
		now:     func() int64 { return time.Now().Unix() },
	}
}

// Listen binds the board-forward and supervisor-command listeners. On
// failure whatever was already bound is closed again.
func (s *Supervisor) Listen() error {
	boardAddr := fmt.Sprintf("%s:%d", s.Cfg.IP.Value, s.Cfg.PortBoard.Value)
	cmdAddr := fmt.Sprintf("%s:%d", s.Cfg.IP.Value, s.Cfg.PortDaemon.Value)

	ln, err := net.Listen("tcp", boardAddr)
	if err != nil {
		return fmt.Errorf("bind board listener %s: %w", boardAddr, err)
	}
	s.boardLn = ln.(*net.TCPListener)

	ln, err = net.Listen("tcp", cmdAddr)
	if err != nil {
		s.boardLn.Close()
		s.boardLn = nil
		return fmt.Errorf("bind command listener %s: %w", cmdAddr, err)
	}
	s.cmdLn = ln.(*net.TCPListener)
	return nil
}

// Run drives the main loop until a QUIT command or a terminating signal
// and returns the process exit code. One iteration: service at most one
// connection per listener, observe signal flags, sleep one second, then
// do the interval work when subtick wraps.
func (s *Supervisor) Run() int {
	for {
		s.acceptOne(s.boardLn, s.handleBoardConn)
		s.acceptOne(s.cmdLn, s.handleCommandConn)
		s.handleSignals()
		if s.quit {
			s.shutdown()
			return s.exitCode
		}
		s.sleep(time.Second)
		s.subtick++
		if s.subtick > s.Cfg.Interval.Value {
			s.subtick = 0
			s.tick++
			s.intervalWork()
			if s.tick >= s.Cfg.Logtick.Value {
				s.tick = 0
				if s.Cfg.Verbose.Value > 0 {
					log.Printf("supervisor: alive, interval %d s", s.Cfg.Interval.Value)
				}
			}
		}
	}
}

// intervalWork pings the board while the host looks healthy and runs the
// check pipeline. Pinging first is deliberate: a failing check in this
// same interval then commandeers the reset instead of the ping masking
// it.
func (s *Supervisor) intervalWork() {
	if s.Cfg.Ping.Value {
		if _, err := s.Board.Send("PING"); err != nil {
			log.Printf("supervisor: ping: %v", err)
		}
	}
	res := s.Checker.Run()
	if res.Reboot {
		s.reboot(res)
	}
}

// reboot issues the board reset for a failed check, or only logs it when
// the action is disabled.
func (s *Supervisor) reboot(res checks.Result) {
	if !s.Cfg.Action.Value {
		log.Printf("supervisor: check %s failed (reason %d), action disabled: %s",
			res.Check, res.Reason, res.Detail)
		return
	}
	log.Printf("supervisor: check %s failed, requesting reboot reason %d: %s",
		res.Check, res.Reason, res.Detail)
	if _, err := s.Board.Send(fmt.Sprintf("REBOOT %d", res.Reason)); err != nil {
		log.Printf("supervisor: reboot command: %v", err)
	}
}

// RequestQuit sets the quit flag; code becomes the process exit code.
func (s *Supervisor) RequestQuit(code int) {
	s.quit = true
	if code > s.exitCode {
		s.exitCode = code
	}
}

// shutdown releases everything the loop owns: the board is disarmed and
// the serial line and both listeners are closed.
func (s *Supervisor) shutdown() {
	if !s.Board.Disabled() {
		if err := s.Board.Stop(); err != nil {
			log.Printf("supervisor: stop board: %v", err)
		}
	}
	if err := s.Board.Close(); err != nil {
		log.Printf("supervisor: close serial: %v", err)
	}
	if s.boardLn != nil {
		s.boardLn.Close()
		s.boardLn = nil
	}
	if s.cmdLn != nil {
		s.cmdLn.Close()
		s.cmdLn = nil
	}
}

// SetupBoard runs the board configuration sequence with the current
// parameters. Test mode is sent ON when the reboot action is disabled so
// a lab board never pulses its relay.
func (s *Supervisor) SetupBoard() error {
	return s.Board.Setup(!s.Cfg.Action.Value, s.now(), s.Cfg.Delay.Value)
}
