package detector

import (
	"runtime"

	"golang.org/x/sys/cpu"
)

// Host summarizes the CPU side of the machine so callers can size worker
// pools and vector widths without probing an adapter.
type Host struct {
	Arch      string `json:"arch"`
	NumCPU    int    `json:"num_cpu"`
	AVX2      bool   `json:"avx2"`
	AVX512    bool   `json:"avx512"`
	NEON      bool   `json:"neon"`
	LaneWidth int    `json:"recommended_lane_width"`
}

// ProbeHost reads the CPU feature flags and recommends a 32-bit lane
// count for vectorized passes.
func ProbeHost() Host {
	h := Host{Arch: runtime.GOARCH, NumCPU: runtime.NumCPU()}
	switch runtime.GOARCH {
	case "amd64", "386":
		h.AVX2 = cpu.X86.HasAVX2
		h.AVX512 = cpu.X86.HasAVX512F
	case "arm64":
		h.NEON = cpu.ARM64.HasASIMD
	}
	switch {
	case h.AVX512:
		h.LaneWidth = 16
	case h.AVX2:
		h.LaneWidth = 8
	default:
		h.LaneWidth = 4
	}
	return h
}
