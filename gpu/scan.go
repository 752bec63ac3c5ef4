package gpu

import (
	"fmt"

	"github.com/openfluke/webgpu/wgpu"
)

// runScan uploads in, dispatches the single-pass kernel and reads back the
// outputs and the total from the scratch sink.
func runScan[T Word](in []T, elem string, exclusive bool) ([]T, T, error) {
	var zero T
	if len(in) == 0 {
		return nil, zero, nil
	}

	c, err := GetContext()
	if err != nil {
		return nil, zero, err
	}

	k := NewScanKernel(ScanSpec{N: len(in), Elem: elem, Exclusive: exclusive})
	defer k.Cleanup()

	label := "Scan_" + elem
	if err := k.AllocateBuffers(c, label, wgpu.ToBytes(in)); err != nil {
		return nil, zero, fmt.Errorf("scan buffers: %v", err)
	}
	if err := k.Compile(c, label); err != nil {
		return nil, zero, fmt.Errorf("scan pipeline: %v", err)
	}
	if err := k.CreateBindGroup(c, label); err != nil {
		return nil, zero, fmt.Errorf("scan bind group: %v", err)
	}

	encoder, err := c.Device.CreateCommandEncoder(nil)
	if err != nil {
		return nil, zero, fmt.Errorf("command encoder: %v", err)
	}
	pass := encoder.BeginComputePass(nil)
	k.Dispatch(pass)
	pass.End()
	cmd, err := encoder.Finish(nil)
	if err != nil {
		return nil, zero, fmt.Errorf("command finish: %v", err)
	}
	c.Queue.Submit(cmd)

	out, err := ReadBuffer[T](k.OutputBuffer, 0, len(in))
	if err != nil {
		return nil, zero, err
	}
	tot, err := ReadBuffer[T](k.ScratchBuffer, k.sinkOff, 1)
	if err != nil {
		return nil, zero, err
	}
	return out, tot[0], nil
}

// InclusiveSumU32 scans in on the GPU and returns the outputs with the
// total. The error is non-nil when no adapter is usable; callers fall back
// to the CPU engine.
func InclusiveSumU32(in []uint32) ([]uint32, uint32, error) {
	return runScan(in, "u32", false)
}

func ExclusiveSumU32(in []uint32) ([]uint32, uint32, error) {
	return runScan(in, "u32", true)
}

func InclusiveSumI32(in []int32) ([]int32, int32, error) {
	return runScan(in, "i32", false)
}

func ExclusiveSumI32(in []int32) ([]int32, int32, error) {
	return runScan(in, "i32", true)
}

func InclusiveSumF32(in []float32) ([]float32, float32, error) {
	return runScan(in, "f32", false)
}

func ExclusiveSumF32(in []float32) ([]float32, float32, error) {
	return runScan(in, "f32", true)
}
