package checks

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"nanowatchdog/host/config"
)

// fakeTree builds a /proc-/sys-shaped directory for the probes.
type fakeTree struct {
	t    *testing.T
	proc string
	sys  string
}

func newFakeTree(t *testing.T) *fakeTree {
	t.Helper()
	dir := t.TempDir()
	ft := &fakeTree{t: t, proc: filepath.Join(dir, "proc"), sys: filepath.Join(dir, "sys")}
	ft.write(filepath.Join(ft.proc, "meminfo"), "MemTotal: 16384 kB\nSwapFree: 1048576 kB\n")
	ft.write(filepath.Join(ft.proc, "loadavg"), "0.50 0.40 0.30 1/234 5678\n")
	return ft
}

func (ft *fakeTree) write(path, content string) {
	ft.t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		ft.t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		ft.t.Fatal(err)
	}
}

func (ft *fakeTree) thermal(zone string, milli int) {
	ft.write(filepath.Join(ft.sys, "class/thermal", zone, "temp"), strconv.Itoa(milli)+"\n")
}

func (ft *fakeTree) netStats(iface string, rx, tx uint64) {
	stats := filepath.Join(ft.sys, "class/net", iface, "statistics")
	ft.write(filepath.Join(stats, "rx_packets"), strconv.FormatUint(rx, 10)+"\n")
	ft.write(filepath.Join(stats, "tx_packets"), strconv.FormatUint(tx, 10)+"\n")
}

func newTestChecker(t *testing.T, ft *fakeTree) *Checker {
	c := New(config.New())
	c.ProcRoot = ft.proc
	c.SysRoot = ft.sys
	c.Pinger = func(string) bool { t.Fatal("pinger must not run"); return false }
	c.Alive = func(int) bool { t.Fatal("alive must not run"); return true }
	return c
}

func TestAllQuiet(t *testing.T) {
	ft := newFakeTree(t)
	c := newTestChecker(t, ft)
	ft.thermal("thermal_zone0", 45000)
	if res := c.Run(); res.Reboot {
		t.Errorf("quiet system requested reboot: %+v", res)
	}
}

func TestMemoryShortCircuits(t *testing.T) {
	ft := newFakeTree(t)
	// Scenario: min-memory=4096 pages against SwapFree: 1000 kB = 250
	// pages. The memory probe must trip first and nothing later may run.
	ft.write(filepath.Join(ft.proc, "meminfo"), "SwapFree: 1000 kB\n")
	c := newTestChecker(t, ft)
	c.Cfg.MinMemory.Value = 4096
	c.Cfg.PingHosts.Values = []string{"10.0.0.1"} // would hit t.Fatal

	res := c.Run()
	if !res.Reboot || res.Reason != ReasonMemory {
		t.Fatalf("result = %+v, want memory reason %d", res, ReasonMemory)
	}
}

func TestMemoryDisabledByDefault(t *testing.T) {
	ft := newFakeTree(t)
	ft.write(filepath.Join(ft.proc, "meminfo"), "SwapFree: 0 kB\n")
	c := newTestChecker(t, ft)
	if res := c.Run(); res.Reboot {
		t.Errorf("min-memory unset must disable the probe: %+v", res)
	}
}

func TestLoadAverages(t *testing.T) {
	tests := []struct {
		name    string
		loadavg string
		max1    int
		want    uint8
	}{
		{"load-1", "9.00 0.40 0.30 1/2 3", 8, ReasonLoad1},
		{"load-5", "0.50 7.00 0.30 1/2 3", 8, ReasonLoad5},  // derived max 6
		{"load-15", "0.50 0.40 5.00 1/2 3", 8, ReasonLoad15}, // derived max 4
	}
	for _, tc := range tests {
		ft := newFakeTree(t)
		ft.write(filepath.Join(ft.proc, "loadavg"), tc.loadavg)
		c := newTestChecker(t, ft)
		c.Cfg.MaxLoad1.Value = tc.max1
		c.Cfg.MaxLoad1.Origin = config.OriginConfig

		res := c.Run()
		if !res.Reboot || res.Reason != tc.want {
			t.Errorf("%s: result = %+v, want reason %d", tc.name, res, tc.want)
		}
	}
}

func TestLoadDisabledAtZero(t *testing.T) {
	ft := newFakeTree(t)
	ft.write(filepath.Join(ft.proc, "loadavg"), "99.0 99.0 99.0 1/2 3")
	c := newTestChecker(t, ft)
	if res := c.Run(); res.Reboot {
		t.Errorf("zero load limits must disable the probe: %+v", res)
	}
}

func TestTemperature(t *testing.T) {
	ft := newFakeTree(t)
	ft.thermal("thermal_zone0", 45000)
	ft.thermal("thermal_zone1", 95000)
	c := newTestChecker(t, ft)

	res := c.Run()
	if !res.Reboot || res.Reason != ReasonTemp {
		t.Fatalf("result = %+v, want temperature reason %d", res, ReasonTemp)
	}
}

func TestTemperatureBoundary(t *testing.T) {
	ft := newFakeTree(t)
	// 90000 milli-degrees at the default ceiling of 90: not over.
	ft.thermal("thermal_zone0", 90000)
	c := newTestChecker(t, ft)
	if res := c.Run(); res.Reboot {
		t.Errorf("exactly-at-ceiling tripped: %+v", res)
	}
}

func TestPidfiles(t *testing.T) {
	ft := newFakeTree(t)
	dead := filepath.Join(t.TempDir(), "dead.pid")
	ft.write(dead, "4242\n")
	c := newTestChecker(t, ft)
	c.Cfg.Pidfiles.Values = []string{dead}
	c.Alive = func(pid int) bool { return pid != 4242 }

	res := c.Run()
	if !res.Reboot || res.Reason != ReasonPidfile {
		t.Fatalf("result = %+v, want pidfile reason %d", res, ReasonPidfile)
	}
}

func TestPidfileUnreadableIsNo(t *testing.T) {
	ft := newFakeTree(t)
	c := newTestChecker(t, ft)
	c.Cfg.Pidfiles.Values = []string{filepath.Join(t.TempDir(), "absent.pid")}
	c.Alive = func(int) bool { return true }
	if res := c.Run(); res.Reboot {
		t.Errorf("unreadable pidfile tripped: %+v", res)
	}
}

func TestPing(t *testing.T) {
	ft := newFakeTree(t)
	c := newTestChecker(t, ft)
	c.Cfg.PingHosts.Values = []string{"192.168.1.1", "192.168.1.2"}
	var asked []string
	c.Pinger = func(host string) bool {
		asked = append(asked, host)
		return host != "192.168.1.2"
	}

	res := c.Run()
	if !res.Reboot || res.Reason != ReasonPing {
		t.Fatalf("result = %+v, want ping reason %d", res, ReasonPing)
	}
	if len(asked) != 2 {
		t.Errorf("pinged %v", asked)
	}
}

func TestInterfaces(t *testing.T) {
	ft := newFakeTree(t)
	ft.netStats("eth0", 100, 50)
	ft.netStats("eth1", 0, 0)
	c := newTestChecker(t, ft)
	c.Cfg.Interfaces.Values = []string{"eth0", "eth1"}

	res := c.Run()
	if !res.Reboot || res.Reason != ReasonInterface {
		t.Fatalf("result = %+v, want interface reason %d", res, ReasonInterface)
	}
}

func TestInterfaceOneDirectionAlive(t *testing.T) {
	ft := newFakeTree(t)
	ft.netStats("eth0", 0, 7)
	c := newTestChecker(t, ft)
	c.Cfg.Interfaces.Values = []string{"eth0"}
	if res := c.Run(); res.Reboot {
		t.Errorf("interface with TX traffic tripped: %+v", res)
	}
}

func TestOrderMemoryBeforeLoad(t *testing.T) {
	ft := newFakeTree(t)
	ft.write(filepath.Join(ft.proc, "meminfo"), "SwapFree: 0 kB\n")
	ft.write(filepath.Join(ft.proc, "loadavg"), "99.0 0.0 0.0 1/2 3")
	c := newTestChecker(t, ft)
	c.Cfg.MinMemory.Value = 100
	c.Cfg.MaxLoad1.Value = 1
	c.Cfg.MaxLoad1.Origin = config.OriginConfig

	res := c.Run()
	if res.Reason != ReasonMemory {
		t.Errorf("reason = %d, want memory to win the order", res.Reason)
	}
}
