// Package client speaks the board's line protocol over a serial port:
// one command line out, one (possibly multi-line) reply back, bounded by
// the configured read timeout.
package client

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"nanowatchdog/host/serial"
)

// Client is the host's handle on the watchdog board.
type Client struct {
	port        serial.Port
	readTimeout int  // empty 100 ms read units before a reply is complete
	disabled    bool // when set, commands are echoed instead of sent

	// sleep is swapped out by tests.
	sleep func(time.Duration)
}

// New returns a client over an open port. readTimeout is the number of
// consecutive empty ~100 ms reads after which the reply is considered
// complete.
func New(port serial.Port, readTimeout int) *Client {
	if readTimeout < 1 {
		readTimeout = 1
	}
	return &Client{port: port, readTimeout: readTimeout, sleep: time.Sleep}
}

// NewDisabled returns a client with the serial layer switched off: every
// command is answered with a "noserial:" echo. Used when the supervisor
// runs without hardware.
func NewDisabled() *Client {
	return &Client{disabled: true, sleep: time.Sleep}
}

// Disabled reports whether the serial layer is switched off.
func (c *Client) Disabled() bool { return c.disabled }

// Close releases the serial port.
func (c *Client) Close() error {
	if c.port == nil {
		return nil
	}
	return c.port.Close()
}

// Send writes one command line and collects the reply. Reading stops
// after readTimeout consecutive empty read units; whatever was buffered
// is returned with one trailing CRLF trimmed. An empty reply is not an
// error: the caller decides what silence means.
func (c *Client) Send(line string) (string, error) {
	if c.disabled {
		return "noserial: " + line, nil
	}
	if _, err := io.WriteString(c.port, line+"\n"); err != nil {
		return "", fmt.Errorf("write %q: %w", line, err)
	}

	var reply bytes.Buffer
	var tmp [256]byte
	empty := 0
	for empty < c.readTimeout {
		n, err := c.port.Read(tmp[:])
		if n > 0 {
			reply.Write(tmp[:n])
			empty = 0
			continue
		}
		if err != nil && err != io.EOF {
			return "", fmt.Errorf("read reply to %q: %w", line, err)
		}
		empty++
	}

	s := reply.String()
	s = strings.TrimSuffix(s, "\n")
	s = strings.TrimSuffix(s, "\r")
	return s, nil
}

// WaitReady performs the startup handshake: NOOP once per second until
// the board acknowledges, giving up after openTimeout seconds. An empty
// reply here means "board not ready yet".
func (c *Client) WaitReady(openTimeout int) error {
	if c.disabled {
		return nil
	}
	for i := 0; i < openTimeout; i++ {
		reply, err := c.Send("NOOP")
		if err != nil {
			return err
		}
		if lastLine(reply) == "OK: NOOP" {
			return nil
		}
		c.sleep(time.Second)
	}
	return fmt.Errorf("board did not answer NOOP within %d s", openTimeout)
}

// Setup runs the board configuration sequence: test mode, date, delay,
// then START. testMode is sent as ON when the supervisor runs with the
// reboot action disabled.
func (c *Client) Setup(testMode bool, now int64, delay int) error {
	cmds := []string{
		"SET TEST " + map[bool]string{true: "ON", false: "OFF"}[testMode],
		fmt.Sprintf("SET DATE %d", now),
		fmt.Sprintf("SET DELAY %d", delay),
		"START",
	}
	for _, cmd := range cmds {
		reply, err := c.Send(cmd)
		if err != nil {
			return err
		}
		if lastLine(reply) != "OK: "+cmd {
			return fmt.Errorf("board rejected %q: %q", cmd, reply)
		}
	}
	return nil
}

// Stop disarms the board. Errors are reported but the caller usually
// shuts down regardless.
func (c *Client) Stop() error {
	_, err := c.Send("STOP")
	return err
}

// Status is the parsed slice of a STATUS reply the supervisor cares
// about, alongside the verbatim text.
type Status struct {
	Raw      string
	HasEvent bool
	Acked    bool
	Reason   int
}

// Status queries the board and parses the last-reset block by line
// prefix. The "reason:" and "acknowledged:" labels are part of the wire
// contract.
func (c *Client) Status() (Status, error) {
	raw, err := c.Send("STATUS")
	if err != nil {
		return Status{}, err
	}
	return ParseStatus(raw), nil
}

// ParseStatus extracts the last-reset acknowledgement state from a
// STATUS reply.
func ParseStatus(raw string) Status {
	st := Status{Raw: raw}
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if v, ok := strings.CutPrefix(line, "reason:"); ok {
			fields := strings.Fields(v)
			if len(fields) > 0 {
				if n, err := strconv.Atoi(fields[0]); err == nil {
					st.Reason = n
					st.HasEvent = true
				}
			}
		}
		if v, ok := strings.CutPrefix(line, "acknowledged:"); ok {
			st.Acked = strings.TrimSpace(v) == "yes"
		}
	}
	return st
}

func lastLine(reply string) string {
	lines := strings.Split(strings.TrimSuffix(reply, "\n"), "\n")
	return strings.TrimSuffix(lines[len(lines)-1], "\r")
}
