//go:build gpu

package pods

import (
	"fmt"

	"github.com/openfluke/sweep/gpu"
)

// WGPU routes the hooks to the WebGPU scan pipelines.
type WGPU struct{}

func init() {
	if gpu.Available() {
		GPU = WGPU{}
	}
}

func (WGPU) DispatchScanU32(in []uint32, inclusive bool) ([]uint32, uint32, error) {
	if inclusive {
		return gpu.InclusiveSumU32(in)
	}
	return gpu.ExclusiveSumU32(in)
}

func (WGPU) DispatchScanF32(in []float32, inclusive bool) ([]float32, float32, error) {
	if inclusive {
		return gpu.InclusiveSumF32(in)
	}
	return gpu.ExclusiveSumF32(in)
}

func (WGPU) DispatchReduceF32(in []float32, kind string) (float32, error) {
	if kind != "sum" {
		return 0, fmt.Errorf("gpu reduce: unsupported kind %q", kind)
	}
	_, total, err := gpu.InclusiveSumF32(in)
	return total, err
}
