package config

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"strings"
)

// maxIncludeDepth bounds include chaining; the usual setup is a single
// hop into /etc/watchdog.conf.
const maxIncludeDepth = 8

// Load reads one key = value per line from path into p, chasing include
// directives. Values from the file never overwrite command-line or
// runtime settings, which makes Load directly reusable for the HUP
// reload. Repeatable keys (pidfile, ping, interface) accumulate; their
// file-sourced entries are cleared first so a reload does not duplicate
// them.
func Load(p *Params, path string) error {
	resetFileLists(p)
	return loadFile(p, path, 0)
}

func resetFileLists(p *Params) {
	for _, l := range []*ListParam{&p.Pidfiles, &p.PingHosts, &p.Interfaces} {
		if l.Origin == OriginConfig {
			l.Values = nil
			l.Origin = OriginDefault
		}
	}
}

func loadFile(p *Params, path string, depth int) error {
	if depth >= maxIncludeDepth {
		return fmt.Errorf("include chain too deep at %s", path)
	}
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	var include string
	scanner := bufio.NewScanner(f)
	lineno := 0
	for scanner.Scan() {
		lineno++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, found := strings.Cut(line, "=")
		if !found {
			log.Printf("config: %s:%d: not a key = value line, skipped", path, lineno)
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		if key == "include" {
			include = value
			applyStr(&p.Include, value, OriginConfig)
			continue
		}
		if err := p.Set(key, value, OriginConfig, p.Force.Value); err != nil {
			log.Printf("config: %s:%d: %v", path, lineno, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	// The included file is loaded after the current one; a failure there
	// is logged and skipped so a broken secondary file cannot take the
	// supervisor down.
	if include != "" {
		if err := loadFile(p, include, depth+1); err != nil {
			log.Printf("config: %v", err)
		}
	}
	return nil
}
