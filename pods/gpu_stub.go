package pods

// GPUHooks describes the optional GPU backend. Keep it slice-based so CPU
// fallback is easy.
type GPUHooks interface {
	DispatchScanU32(in []uint32, inclusive bool) ([]uint32, uint32, error)
	DispatchScanF32(in []float32, inclusive bool) ([]float32, float32, error)
	DispatchReduceF32(in []float32, kind string) (float32, error) // kind: "sum"
}

// Default to a no-op GPU so everything builds/runs without tags. The gpu
// build tag swaps in the WebGPU-backed implementation.
var GPU GPUHooks = noopGPU{}

type noopGPU struct{}

func (noopGPU) DispatchScanU32([]uint32, bool) ([]uint32, uint32, error) {
	return nil, 0, ErrNoGPU
}
func (noopGPU) DispatchScanF32([]float32, bool) ([]float32, float32, error) {
	return nil, 0, ErrNoGPU
}
func (noopGPU) DispatchReduceF32([]float32, string) (float32, error) {
	return 0, ErrNoGPU
}
