package health

import (
	"fmt"
	"runtime"
	"strings"
	"sync"

	"github.com/jaypipes/ghw"
	"github.com/shirou/gopsutil/v3/cpu"
)

// SystemInfo describes the host the server runs on.
type SystemInfo struct {
	Arch         string
	CPUInfo      string
	CPUCount     int
	Accelerators []string
}

var (
	systemOnce sync.Once
	systemInfo SystemInfo
)

// System returns host information. It is collected once per process; the
// hardware probes are slow and the answer does not change.
func System() SystemInfo {
	systemOnce.Do(func() {
		systemInfo = collectSystemInfo()
	})
	return systemInfo
}

func collectSystemInfo() SystemInfo {
	info := SystemInfo{
		Arch:     runtime.GOARCH,
		CPUCount: runtime.NumCPU(),
		CPUInfo:  "unknown",
	}

	if infos, err := cpu.Info(); err == nil && len(infos) > 0 {
		if name := strings.TrimSpace(infos[0].ModelName); name != "" {
			info.CPUInfo = name
		}
	}
	if threads, err := cpu.Counts(true); err == nil && threads > 0 {
		info.CPUCount = threads
	}
	info.Accelerators = gpuNames()

	return info
}

func gpuNames() []string {
	gpu, err := ghw.GPU()
	if err != nil || gpu == nil {
		return []string{}
	}

	names := make([]string, 0, len(gpu.GraphicsCards))
	for _, card := range gpu.GraphicsCards {
		name := ""
		if card.DeviceInfo != nil {
			switch {
			case card.DeviceInfo.Vendor != nil && card.DeviceInfo.Product != nil:
				name = strings.TrimSpace(card.DeviceInfo.Vendor.Name + " " + card.DeviceInfo.Product.Name)
			case card.DeviceInfo.Product != nil:
				name = strings.TrimSpace(card.DeviceInfo.Product.Name)
			}
		}
		if name == "" {
			name = fmt.Sprintf("GPU %d", card.Index)
		}
		names = append(names, name)
	}
	return names
}
