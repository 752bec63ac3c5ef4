package detector

import (
	"encoding/json"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/openfluke/webgpu/wgpu"

	"github.com/openfluke/sweep/device"
	"github.com/openfluke/sweep/gpu"
)

/* ---------- public API ---------- */

// Report is a portable summary of the current adapter/device caps.
type Report struct {
	WhenISO     string            `json:"when_iso"`
	Runtime     string            `json:"runtime"` // "native" or "wasm" (best-effort)
	Backend     string            `json:"backend"`
	AdapterType string            `json:"adapter_type"`
	VendorID    string            `json:"vendor_id_hex"`
	DeviceID    string            `json:"device_id_hex"`
	Name        string            `json:"name"`
	Driver      string            `json:"driver"`
	Host        Host              `json:"host"`
	Recommended Recommendations   `json:"recommended"`
	Limits      Limits            `json:"limits"`
	Features    []string          `json:"features"`
	Env         map[string]string `json:"env,omitempty"`
}

type Limits struct {
	MaxComputeInvocationsPerWorkgroup uint32 `json:"max_compute_invocations_per_workgroup"`
	MaxComputeWorkgroupSizeX          uint32 `json:"max_compute_workgroup_size_x"`
	MaxComputeWorkgroupSizeY          uint32 `json:"max_compute_workgroup_size_y"`
	MaxComputeWorkgroupSizeZ          uint32 `json:"max_compute_workgroup_size_z"`
	MaxComputeWorkgroupsPerDimension  uint32 `json:"max_compute_workgroups_per_dimension"`
	MaxComputeWorkgroupStorageSize    uint32 `json:"max_compute_workgroup_storage_size"`
	MaxStorageBufferBindingSize       uint64 `json:"max_storage_buffer_binding_size"`
	MaxBufferSize                     uint64 `json:"max_buffer_size"`
}

// Recommendations sizes one scan dispatch for the probed adapter.
type Recommendations struct {
	// Widest 1D workgroup the scan kernel can run here.
	WorkgroupX uint32 `json:"workgroup_x"`

	// Elements one workgroup covers: WorkgroupX lanes times the chunk
	// count the kernel carries per invocation.
	ElemsPerGroup uint32 `json:"elems_per_group"`

	// Largest element count a single dispatch can scan before the grid
	// dimension, the status-cell scratch binding, the data bindings or
	// the memory budget runs out.
	MaxScanElems uint64 `json:"max_scan_elems"`

	// Soft VRAM/heap budget in bytes for buffers + staging.
	BudgetBytes uint64 `json:"budget_bytes"`
}

// DetectJSON runs a probe and returns the JSON string.
func DetectJSON() (string, error) {
	rep, err := Detect()
	if err != nil {
		return "", err
	}
	b, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Detect probes the default adapter/device and synthesizes a report.
func Detect() (*Report, error) {
	inst := wgpu.CreateInstance(nil)
	if inst == nil {
		return nil, fmt.Errorf("wgpu.CreateInstance returned nil")
	}
	defer inst.Release()

	adapter, err := inst.RequestAdapter(&wgpu.RequestAdapterOptions{
		PowerPreference: wgpu.PowerPreferenceHighPerformance,
	})
	if err != nil {
		return nil, fmt.Errorf("request adapter: %w", err)
	}
	if adapter == nil {
		return nil, fmt.Errorf("no adapter")
	}
	defer adapter.Release()

	info := adapter.GetInfo()
	limits := adapter.GetLimits()

	var feats []string
	for _, f := range adapter.EnumerateFeatures() {
		feats = append(feats, f.String())
	}

	// A report for an adapter that cannot create a device is useless, so
	// fail here rather than at first dispatch.
	dev, err := adapter.RequestDevice(&wgpu.DeviceDescriptor{})
	if err != nil {
		return nil, fmt.Errorf("request device: %w", err)
	}
	dev.Release()

	budget := budgetBytes()
	wgX := chooseWorkgroup(limits)
	perGroup := wgX * gpu.ScanChunks

	rt := "native"
	if runtime.GOOS == "js" {
		rt = "wasm"
	}

	return &Report{
		WhenISO:     time.Now().UTC().Format(time.RFC3339),
		Runtime:     rt,
		Backend:     info.BackendType.String(),
		AdapterType: info.AdapterType.String(),
		VendorID:    fmt.Sprintf("0x%04x", info.VendorId),
		DeviceID:    fmt.Sprintf("0x%04x", info.DeviceId),
		Name:        strings.TrimSpace(info.Name),
		Driver:      strings.TrimSpace(info.DriverDescription),
		Host:        ProbeHost(),
		Limits: Limits{
			MaxComputeInvocationsPerWorkgroup: limits.Limits.MaxComputeInvocationsPerWorkgroup,
			MaxComputeWorkgroupSizeX:          limits.Limits.MaxComputeWorkgroupSizeX,
			MaxComputeWorkgroupSizeY:          limits.Limits.MaxComputeWorkgroupSizeY,
			MaxComputeWorkgroupSizeZ:          limits.Limits.MaxComputeWorkgroupSizeZ,
			MaxComputeWorkgroupsPerDimension:  limits.Limits.MaxComputeWorkgroupsPerDimension,
			MaxComputeWorkgroupStorageSize:    limits.Limits.MaxComputeWorkgroupStorageSize,
			MaxStorageBufferBindingSize:       limits.Limits.MaxStorageBufferBindingSize,
			MaxBufferSize:                     limits.Limits.MaxBufferSize,
		},
		Features: feats,
		Recommended: Recommendations{
			WorkgroupX:    wgX,
			ElemsPerGroup: perGroup,
			MaxScanElems:  maxScanElems(limits, perGroup, budget),
			BudgetBytes:   budget,
		},
		Env: envSnapshot(),
	}, nil
}

/* ---------- helpers ---------- */

// chooseWorkgroup picks the widest workgroup the scan kernel can run on
// this adapter. Candidates halve from the kernel's native width down to
// one look-back window; each needs a four-byte shared staging slot per
// invocation plus the id and prefix words.
func chooseWorkgroup(l wgpu.SupportedLimits) uint32 {
	for wg := uint32(gpu.ScanWorkgroup); wg >= device.WarpSize; wg >>= 1 {
		shared := wg*4 + 8
		if wg <= l.Limits.MaxComputeWorkgroupSizeX &&
			wg <= l.Limits.MaxComputeInvocationsPerWorkgroup &&
			shared <= l.Limits.MaxComputeWorkgroupStorageSize {
			return wg
		}
	}
	return device.WarpSize
}

// maxScanElems bounds a single scan dispatch. The grid is capped per
// dimension, every block needs one status cell in the scratch binding,
// input and output carry four bytes per element, and the budget must hold
// input, output and the readback staging copy.
func maxScanElems(l wgpu.SupportedLimits, perGroup uint32, budget uint64) uint64 {
	bind := l.Limits.MaxStorageBufferBindingSize

	blocks := uint64(l.Limits.MaxComputeWorkgroupsPerDimension)
	if byCells := bind / gpu.ScanCellBytes; byCells < blocks {
		blocks = byCells
	}

	elems := blocks * uint64(perGroup)
	if byData := bind / 4; byData < elems {
		elems = byData
	}
	if byBudget := budget / 12; byBudget < elems {
		elems = byBudget
	}
	// The drivers reject n at 2^31 and beyond.
	if max := uint64(1<<31) - 1; elems > max {
		elems = max
	}
	return elems
}

// budgetBytes reads the soft memory budget, default 128 MiB.
func budgetBytes() uint64 {
	if s := os.Getenv("SWEEP_BUDGET_MB"); s != "" {
		if mb, err := strconv.Atoi(s); err == nil && mb > 0 {
			return uint64(mb) << 20
		}
	}
	return 128 << 20
}

func envSnapshot() map[string]string {
	m := map[string]string{}
	for _, k := range []string{"SWEEP_BUDGET_MB", "SWEEP_WORKERS"} {
		if v := os.Getenv(k); v != "" {
			m[k] = v
		}
	}
	if len(m) == 0 {
		return nil
	}
	return m
}
