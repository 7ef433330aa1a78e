package supervisor

import (
	"fmt"
	"log"

	"nanowatchdog/host/client"
)

// NotifyBoot inspects the board status captured at startup. An
// unacknowledged reset event is mailed to the operator with the full
// STATUS text, then acknowledged on the board; without an event a short
// all-clear goes out only when send-mail is "always".
func (s *Supervisor) NotifyBoot(st client.Status) {
	if s.Cfg.SendMail.Value == "never" || s.Cfg.Admin.Value == "" {
		return
	}
	from := s.Cfg.SendFrom.Value
	admin := s.Cfg.Admin.Value

	if st.HasEvent && !st.Acked {
		subject := fmt.Sprintf("NanoWatchdog: unacknowledged reset, reason %d", st.Reason)
		if err := s.Mailer.Send(from, admin, subject, st.Raw); err != nil {
			// Leave the event unacknowledged so the next boot tries
			// again.
			log.Printf("supervisor: notify: %v", err)
			return
		}
		if _, err := s.Board.Send("ACKNOWLEDGE 0"); err != nil {
			log.Printf("supervisor: acknowledge: %v", err)
		}
		return
	}
	if s.Cfg.SendMail.Value == "always" {
		err := s.Mailer.Send(from, admin, "NanoWatchdog: started",
			"No unacknowledged reset event on the board.\n")
		if err != nil {
			log.Printf("supervisor: notify: %v", err)
		}
	}
}
