package supervisor

import (
	"log"
	"os"
	"os/signal"
	"time"

	"golang.org/x/sys/unix"

	"nanowatchdog/host/config"
)

// InstallSignals registers the lifecycle signals. Handlers do no work:
// deliveries queue on the channel and are drained at the top of the next
// loop iteration, keeping the loop strictly cooperative.
func (s *Supervisor) InstallSignals() {
	s.sigCh = make(chan os.Signal, 8)
	signal.Notify(s.sigCh, unix.SIGHUP, unix.SIGINT, unix.SIGTERM, unix.SIGUSR1)
}

// handleSignals drains pending deliveries without blocking.
func (s *Supervisor) handleSignals() {
	for {
		select {
		case sig := <-s.sigCh:
			s.handleSignal(sig)
		default:
			return
		}
	}
}

func (s *Supervisor) handleSignal(sig os.Signal) {
	switch sig {
	case unix.SIGHUP:
		s.reloadConfig()
	case unix.SIGINT:
		s.RequestQuit(1)
	case unix.SIGTERM:
		s.RequestQuit(0)
	case unix.SIGUSR1:
		s.restartBoard()
	}
}

// reloadConfig re-reads the configuration source. Parameters set on the
// command line or at runtime keep their values; everything else is
// overwritten by the file.
func (s *Supervisor) reloadConfig() {
	if s.ConfigPath == "" {
		log.Printf("supervisor: HUP with no configuration file, ignored")
		return
	}
	log.Printf("supervisor: reloading %s", s.ConfigPath)
	if err := config.Load(s.Cfg, s.ConfigPath); err != nil {
		log.Printf("supervisor: reload: %v", err)
	}
}

// restartBoard disarms the board, waits a second, then replays the
// startup configuration sequence.
func (s *Supervisor) restartBoard() {
	if s.Board.Disabled() {
		return
	}
	if err := s.Board.Stop(); err != nil {
		log.Printf("supervisor: restart stop: %v", err)
	}
	s.sleep(time.Second)
	if err := s.SetupBoard(); err != nil {
		log.Printf("supervisor: restart setup: %v", err)
	}
}
