package ffmpeg

import (
	"fmt"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
)

// ResourceGate refuses to start new conversions when the machine is
// too busy. A zero threshold disables the corresponding check.
type ResourceGate struct {
	// MinIdleCPU is the CPU percentage that must be idle
	MinIdleCPU float64
	// MinFreeMem is the number of bytes of memory that must be available
	MinFreeMem uint64
	// MinFreeDisk is the number of bytes that must be free on the
	// output volume
	MinFreeDisk uint64
}

// Check returns an error when any enabled threshold is not met.
// outputDir is the directory the conversion will write to.
func (g *ResourceGate) Check(outputDir string) error {
	if g.MinIdleCPU > 0 {
		p, err := cpu.Percent(time.Second, false)
		if err == nil && len(p) > 0 && p[0] > 100.0-g.MinIdleCPU {
			return fmt.Errorf("not enough idle CPU: usage %.2f%%, need %.2f%% idle", p[0], g.MinIdleCPU)
		}
	}

	if g.MinFreeMem > 0 {
		vm, err := mem.VirtualMemory()
		if err == nil && vm.Available < g.MinFreeMem {
			return fmt.Errorf("not enough free memory: available %d, need %d", vm.Available, g.MinFreeMem)
		}
	}

	if g.MinFreeDisk > 0 {
		d, err := disk.Usage(outputDir)
		if err == nil && d.Free < g.MinFreeDisk {
			return fmt.Errorf("not enough free disk: available %d, need %d", d.Free, g.MinFreeDisk)
		}
	}

	return nil
}
