package checks

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sys/unix"
)

// pingCeiling bounds one external ping invocation.
const pingCeiling = 5 * time.Second

// checkMemory trips when swap-free, counted in 4-KiB pages, drops below
// min-memory. /proc/meminfo reports SwapFree in kB; dividing by 4 is the
// historical arithmetic the configuration value is calibrated against.
func (c *Checker) checkMemory() (bool, uint8, string) {
	min := c.Cfg.MinMemory.Value
	if min <= 0 {
		return false, 0, ""
	}
	data, err := os.ReadFile(filepath.Join(c.ProcRoot, "meminfo"))
	if err != nil {
		log.Printf("checks: meminfo unreadable: %v", err)
		return false, 0, ""
	}
	for _, line := range strings.Split(string(data), "\n") {
		v, ok := strings.CutPrefix(line, "SwapFree:")
		if !ok {
			continue
		}
		fields := strings.Fields(v)
		if len(fields) < 1 {
			break
		}
		kb, err := strconv.Atoi(fields[0])
		if err != nil {
			break
		}
		pages := kb / 4
		if pages < min {
			return true, ReasonMemory, fmt.Sprintf("swap free %d pages < min-memory %d", pages, min)
		}
		return false, 0, ""
	}
	log.Printf("checks: no SwapFree line in meminfo")
	return false, 0, ""
}

// checkLoad trips when any of the three load averages exceeds its
// configured ceiling. A ceiling of zero disables that average.
func (c *Checker) checkLoad() (bool, uint8, string) {
	limits := []struct {
		max    int
		field  int
		reason uint8
		label  string
	}{
		{c.Cfg.MaxLoad1.Value, 0, ReasonLoad1, "load-1"},
		{c.Cfg.MaxLoad5Effective(), 1, ReasonLoad5, "load-5"},
		{c.Cfg.MaxLoad15Effective(), 2, ReasonLoad15, "load-15"},
	}
	enabled := false
	for _, l := range limits {
		if l.max > 0 {
			enabled = true
		}
	}
	if !enabled {
		return false, 0, ""
	}

	data, err := os.ReadFile(filepath.Join(c.ProcRoot, "loadavg"))
	if err != nil {
		log.Printf("checks: loadavg unreadable: %v", err)
		return false, 0, ""
	}
	fields := strings.Fields(string(data))
	if len(fields) < 3 {
		log.Printf("checks: malformed loadavg %q", string(data))
		return false, 0, ""
	}
	for _, l := range limits {
		if l.max <= 0 {
			continue
		}
		load, err := strconv.ParseFloat(fields[l.field], 64)
		if err != nil {
			continue
		}
		if load > float64(l.max) {
			return true, l.reason, fmt.Sprintf("%s %.2f > %d", l.label, load, l.max)
		}
	}
	return false, 0, ""
}

// checkTemperature trips when any readable thermal zone exceeds the
// ceiling. The check is always armed; zones that cannot be read are
// skipped.
func (c *Checker) checkTemperature() (bool, uint8, string) {
	max := c.Cfg.MaxTemperature.Value
	zones, err := filepath.Glob(filepath.Join(c.SysRoot, "class/thermal/*/temp"))
	if err != nil || len(zones) == 0 {
		return false, 0, ""
	}
	for _, zone := range zones {
		data, err := os.ReadFile(zone)
		if err != nil {
			continue
		}
		milli, err := strconv.Atoi(strings.TrimSpace(string(data)))
		if err != nil {
			continue
		}
		if milli/1000 > max {
			return true, ReasonTemp, fmt.Sprintf("%s reads %d C > %d", zone, milli/1000, max)
		}
	}
	return false, 0, ""
}

// checkPidfiles trips when a listed pid-file names a process that is no
// longer alive. Unreadable or garbled files are logged and skipped.
func (c *Checker) checkPidfiles() (bool, uint8, string) {
	for _, path := range c.Cfg.Pidfiles.Values {
		data, err := os.ReadFile(path)
		if err != nil {
			log.Printf("checks: pidfile %s unreadable: %v", path, err)
			continue
		}
		pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
		if err != nil {
			log.Printf("checks: pidfile %s: %q is not a pid", path, strings.TrimSpace(string(data)))
			continue
		}
		if !c.Alive(pid) {
			return true, ReasonPidfile, fmt.Sprintf("pid %d from %s is gone", pid, path)
		}
	}
	return false, 0, ""
}

// checkPing trips when any listed host fails a single ping.
func (c *Checker) checkPing() (bool, uint8, string) {
	for _, host := range c.Cfg.PingHosts.Values {
		if !c.Pinger(host) {
			return true, ReasonPing, fmt.Sprintf("host %s does not answer", host)
		}
	}
	return false, 0, ""
}

// checkInterfaces trips when a listed interface shows zero packets in
// both directions.
func (c *Checker) checkInterfaces() (bool, uint8, string) {
	for _, iface := range c.Cfg.Interfaces.Values {
		stats := filepath.Join(c.SysRoot, "class/net", iface, "statistics")
		rx, errRx := readCounter(filepath.Join(stats, "rx_packets"))
		tx, errTx := readCounter(filepath.Join(stats, "tx_packets"))
		if errRx != nil || errTx != nil {
			log.Printf("checks: interface %s counters unreadable", iface)
			continue
		}
		if rx == 0 && tx == 0 {
			return true, ReasonInterface, fmt.Sprintf("interface %s has no traffic", iface)
		}
	}
	return false, 0, ""
}

// checkTestDirectory is reserved and always passes.
func (c *Checker) checkTestDirectory() (bool, uint8, string) {
	return false, 0, ""
}

func readCounter(path string) (uint64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.ParseUint(strings.TrimSpace(string(data)), 10, 64)
}

// execPing shells out for one ICMP probe, bounded by a wall-clock
// ceiling.
func execPing(host string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), pingCeiling)
	defer cancel()
	return exec.CommandContext(ctx, "ping", "-c1", host).Run() == nil
}

// pidAlive probes the process with a null signal instead of scanning the
// process list.
func pidAlive(pid int) bool {
	err := unix.Kill(pid, 0)
	// EPERM means the process exists but belongs to someone else.
	return err == nil || err == unix.EPERM
}
