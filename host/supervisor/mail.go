package supervisor

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// sendmailCeiling bounds one delivery attempt.
const sendmailCeiling = 30 * time.Second

// SendmailMailer pipes messages through a local sendmail binary.
type SendmailMailer struct {
	// Path to the sendmail binary; /usr/sbin/sendmail when empty.
	Path string
}

func (m SendmailMailer) Send(from, to, subject, body string) error {
	path := m.Path
	if path == "" {
		path = "/usr/sbin/sendmail"
	}
	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\n", from)
	fmt.Fprintf(&msg, "To: %s\n", to)
	fmt.Fprintf(&msg, "Subject: %s\n", subject)
	fmt.Fprintf(&msg, "\n%s\n", body)

	ctx, cancel := context.WithTimeout(context.Background(), sendmailCeiling)
	defer cancel()
	cmd := exec.CommandContext(ctx, path, "-t")
	cmd.Stdin = strings.NewReader(msg.String())
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("sendmail %s: %w", to, err)
	}
	return nil
}
