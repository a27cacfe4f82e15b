// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package cpu samples aggregate CPU load from /proc/stat and core
// temperature from hwmon, publishing both as Prometheus gauges and
// feeding the shared metrics snapshot consumed by the HUD and logger.
package cpu

import (
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/klauspost/cpuid/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/procfs"
)

var (
	loadPercent = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "mangohud",
		Subsystem: "cpu",
		Name:      "load_percent",
		Help:      "Aggregate CPU load percentage across all cores (0-100)",
	})

	temperatureCelsius = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "mangohud",
		Subsystem: "cpu",
		Name:      "temperature_celsius",
		Help:      "CPU package temperature from the first matching hwmon sensor",
	})

	clockMHz = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "mangohud",
		Subsystem: "cpu",
		Name:      "clock_mhz",
		Help:      "Current CPU clock speed in MHz, averaged across cores",
	})
)

// knownHwmonNames are the sensor chip names known to expose a usable CPU
// package/die temperature, in the order the real overlay checks them.
var knownHwmonNames = []string{"coretemp", "k10temp", "zenpower"}

// cpuTimes is the subset of /proc/stat fields that feed percent busy.
type cpuTimes struct {
	user, nice, system, idle, iowait, irq, softirq, steal, guest, guestNice float64
}

func (c cpuTimes) total() float64 {
	return c.user + c.nice + c.system + c.idle + c.iowait + c.irq + c.softirq + c.steal + c.guest + c.guestNice
}

func (c cpuTimes) busy() float64 {
	return c.user + c.nice + c.system + c.steal + c.guest
}

func fromProcfsStat(s procfs.CPUStat) cpuTimes {
	return cpuTimes{
		user: s.User, nice: s.Nice, system: s.System, idle: s.Idle,
		iowait: s.Iowait, irq: s.IRQ, softirq: s.SoftIRQ, steal: s.Steal,
		guest: s.Guest, guestNice: s.GuestNice,
	}
}

// Sampler polls /proc/stat and hwmon for CPU telemetry.
type Sampler struct {
	fs       procfs.FS
	lastTime cpuTimes
	havePrev bool
	brand    string
}

// NewSampler opens /proc under procRoot (normally "/proc").
func NewSampler(procRoot string) (*Sampler, error) {
	fs, err := procfs.NewFS(procRoot)
	if err != nil {
		return nil, err
	}
	return &Sampler{fs: fs, brand: cpuid.CPU.BrandName}, nil
}

// Poll reads the current aggregate CPU stat, computes percent busy since the
// previous poll via saturating subtraction, and updates the load gauge. The
// first call after construction has no prior sample and reports 0.
func (s *Sampler) Poll() (percent float64, err error) {
	stat, err := s.fs.Stat()
	if err != nil {
		return 0, err
	}
	cur := fromProcfsStat(stat.CPUTotal)

	if !s.havePrev {
		s.lastTime = cur
		s.havePrev = true
		return 0, nil
	}

	deltaBusy := cur.busy() - s.lastTime.busy()
	deltaTotal := cur.total() - s.lastTime.total()
	s.lastTime = cur

	if deltaBusy < 0 {
		deltaBusy = 0
	}
	if deltaTotal <= 0 {
		return 0, nil
	}

	percent = (deltaBusy / deltaTotal) * 100
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}

	loadPercent.Set(percent)
	return percent, nil
}

// PollClockMHz averages /proc/cpuinfo's per-core "cpu MHz" field.
func (s *Sampler) PollClockMHz() (float64, error) {
	infos, err := s.fs.CPUInfo()
	if err != nil {
		return 0, err
	}
	if len(infos) == 0 {
		return 0, nil
	}
	var sum float64
	for _, ci := range infos {
		sum += ci.CPUMHz
	}
	avg := sum / float64(len(infos))
	clockMHz.Set(avg)
	return avg, nil
}

// PollTemperature reads the first hwmon chip matching knownHwmonNames and
// returns its temp1_input reading in Celsius. hwmonRoot is normally
// "/sys/class/hwmon".
func PollTemperature(hwmonRoot string) (float64, bool) {
	entries, err := os.ReadDir(hwmonRoot)
	if err != nil {
		return 0, false
	}

	// Deterministic order so "first matching" is reproducible across runs.
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)

	for _, name := range names {
		chipPath := filepath.Join(hwmonRoot, name)
		chipName, err := os.ReadFile(filepath.Join(chipPath, "name"))
		if err != nil {
			continue
		}
		trimmed := strings.TrimSpace(string(chipName))
		if !matchesKnownChip(trimmed) {
			continue
		}
		raw, err := os.ReadFile(filepath.Join(chipPath, "temp1_input"))
		if err != nil {
			continue
		}
		milliC, err := strconv.ParseInt(strings.TrimSpace(string(raw)), 10, 64)
		if err != nil {
			continue
		}
		celsius := float64(milliC) / 1000.0
		temperatureCelsius.Set(celsius)
		return celsius, true
	}
	return 0, false
}

func matchesKnownChip(name string) bool {
	for _, known := range knownHwmonNames {
		if name == known {
			return true
		}
	}
	return false
}

// BrandName returns the detected CPU brand string, for the HUD's static
// identity line.
func (s *Sampler) BrandName() string { return s.brand }
