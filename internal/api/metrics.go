package api

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

// ServerMetrics собирает сведения о процессе и хосте для /api/server
type ServerMetrics struct {
	StartTime time.Time
	proc      *process.Process
}

// NewServerMetrics создает новый экземпляр метрик
func NewServerMetrics() *ServerMetrics {
	sm := &ServerMetrics{StartTime: time.Now()}
	// Без процесса метрики CPU/RSS деградируют до runtime и системных
	if proc, err := process.NewProcess(int32(os.Getpid())); err == nil {
		sm.proc = proc
	}
	return sm
}

// GetUptime возвращает время работы сервера
func (sm *ServerMetrics) GetUptime() string {
	return formatUptime(time.Since(sm.StartTime))
}

func formatUptime(uptime time.Duration) string {
	days := int(uptime.Hours()) / 24
	hours := int(uptime.Hours()) % 24
	minutes := int(uptime.Minutes()) % 60
	seconds := int(uptime.Seconds()) % 60

	switch {
	case days > 0:
		return fmt.Sprintf("%dд %dч %dм %dс", days, hours, minutes, seconds)
	case hours > 0:
		return fmt.Sprintf("%dч %dм %dс", hours, minutes, seconds)
	case minutes > 0:
		return fmt.Sprintf("%dм %dс", minutes, seconds)
	default:
		return fmt.Sprintf("%dс", seconds)
	}
}

// GetCPUUsage возвращает использование CPU процессом в процентах
func (sm *ServerMetrics) GetCPUUsage() (float64, error) {
	if sm.proc != nil {
		if cpuPercent, err := sm.proc.CPUPercent(); err == nil {
			return cpuPercent, nil
		}
	}

	// Если не удалось получить метрику процесса, попробуем системную
	cpuPercents, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil || len(cpuPercents) == 0 {
		return 0, err
	}
	return cpuPercents[0], nil
}

// MemoryStats память процесса и хоста в мегабайтах
type MemoryStats struct {
	HeapAllocMB   float64 `json:"heap_alloc_mb"`
	SysMB         float64 `json:"sys_mb"`
	RSSMB         float64 `json:"rss_mb,omitempty"`
	HostTotalMB   float64 `json:"host_total_mb,omitempty"`
	HostAvailMB   float64 `json:"host_available_mb,omitempty"`
	HostUsedPct   float64 `json:"host_used_percent,omitempty"`
	NumGC         uint32  `json:"num_gc"`
	NumGoroutines int     `json:"goroutines"`
}

const mb = 1024 * 1024

// GetMemoryStats возвращает статистику памяти. Ошибки gopsutil оставляют
// соответствующие поля пустыми.
func (sm *ServerMetrics) GetMemoryStats() MemoryStats {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	stats := MemoryStats{
		HeapAllocMB:   float64(m.HeapAlloc) / mb,
		SysMB:         float64(m.Sys) / mb,
		NumGC:         m.NumGC,
		NumGoroutines: runtime.NumGoroutine(),
	}
	if sm.proc != nil {
		if info, err := sm.proc.MemoryInfo(); err == nil {
			stats.RSSMB = float64(info.RSS) / mb
		}
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		stats.HostTotalMB = float64(vm.Total) / mb
		stats.HostAvailMB = float64(vm.Available) / mb
		stats.HostUsedPct = vm.UsedPercent
	}
	return stats
}
