package supervisor

import (
	"log"
	"strings"

	"github.com/google/shlex"

	"nanowatchdog/host/config"
)

const commandHelp = "Supervisor commands:\n" +
	"  DUMP PARMS        list every parameter with value and origin\n" +
	"  DUMP OPTS         deprecated alias for DUMP PARMS\n" +
	"  GET <name>        echo name=value for a known parameter\n" +
	"  PING ON|OFF       enable or disable the periodic board ping\n" +
	"  SET VERBOSE <n>   set verbosity (decimal, 0x... or 0b...)\n" +
	"  QUIT              terminate the supervisor\n" +
	"  HELP              this text\n"

// HandleCommand interprets one supervisor-command request and returns
// the reply. Matching is case-sensitive with surrounding whitespace
// tolerated; anything unrecognized is answered with an "unknown command"
// line.
func (s *Supervisor) HandleCommand(req string) string {
	line := strings.TrimSpace(req)
	tokens, err := shlex.Split(line)
	if err != nil || len(tokens) == 0 {
		return "unknown command: " + line
	}

	switch tokens[0] {
	case "DUMP":
		if len(tokens) == 2 && (tokens[1] == "PARMS" || tokens[1] == "OPTS") {
			if tokens[1] == "OPTS" {
				log.Printf("supervisor: DUMP OPTS is deprecated, use DUMP PARMS")
			}
			return s.Cfg.DumpParms()
		}
	case "GET":
		if len(tokens) == 2 {
			return s.Cfg.Get(tokens[1])
		}
	case "HELP":
		if len(tokens) == 1 {
			return commandHelp
		}
	case "PING":
		if len(tokens) == 2 && (tokens[1] == "ON" || tokens[1] == "OFF") {
			s.Cfg.Ping.Value = tokens[1] == "ON"
			s.Cfg.Ping.Origin = config.OriginRuntime
			return "OK: " + line
		}
	case "SET":
		if len(tokens) == 3 && tokens[1] == "VERBOSE" {
			n, err := config.ParseVerbose(tokens[2])
			if err != nil {
				return "unknown command: " + line
			}
			s.Cfg.Verbose.Value = n
			s.Cfg.Verbose.Origin = config.OriginRuntime
			return "OK: " + line
		}
	case "QUIT":
		if len(tokens) == 1 {
			s.RequestQuit(0)
			return "OK: QUIT"
		}
	}
	return "unknown command: " + line
}
