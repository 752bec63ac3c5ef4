package gpu

import (
	"fmt"

	"github.com/openfluke/webgpu/wgpu"

	"github.com/openfluke/sweep/device"
)

// ScanSpec defines configuration for a single-pass prefix-sum dispatch.
type ScanSpec struct {
	N         int
	Elem      string // "u32", "i32" or "f32"
	Exclusive bool
}

// Workgroup geometry. A workgroup covers ScanWorkgroup*ScanChunks
// elements; the look-back window matches the CPU engine's warp width.
// Each block owns one status cell of ScanCellBytes in the scratch buffer
// (status word plus the aggregate and inclusive value words).
const (
	ScanWorkgroup = 256
	ScanChunks    = 4
	ScanCellBytes = 12
	scanWindow    = device.WarpSize
)

// ScanKernel holds GPU resources for the single-pass scan. The scratch
// buffer carries the cross-workgroup state in one allocation: the status
// cells, then the virtual-position counter, then the total-sum word, each
// region at an aligned offset.
type ScanKernel struct {
	Spec ScanSpec

	nblocks    int
	counterOff uint64
	sinkOff    uint64

	pipeline  *wgpu.ComputePipeline
	bindGroup *wgpu.BindGroup

	InputBuffer   *wgpu.Buffer
	OutputBuffer  *wgpu.Buffer
	ScratchBuffer *wgpu.Buffer
}

// NewScanKernel sizes the kernel for spec. Cells are unpacked on the GPU:
// WGSL has no 64-bit atomics, so each cell is three 32-bit words (status,
// aggregate, inclusive).
func NewScanKernel(spec ScanSpec) *ScanKernel {
	perBlock := ScanWorkgroup * ScanChunks
	nblocks := (spec.N + perBlock - 1) / perBlock
	if nblocks < 1 {
		nblocks = 1
	}
	cells := device.Align(nblocks * ScanCellBytes)
	counterOff := cells
	sinkOff := counterOff + device.Align(4)
	return &ScanKernel{
		Spec:       spec,
		nblocks:    nblocks,
		counterOff: uint64(counterOff),
		sinkOff:    uint64(sinkOff),
	}
}

// Blocks reports how many workgroups one dispatch launches.
func (k *ScanKernel) Blocks() int { return k.nblocks }

func (k *ScanKernel) scratchBytes() uint64 {
	return k.sinkOff + uint64(device.Align(4))
}

func (k *ScanKernel) sinkUpdate() string {
	if k.Spec.Elem == "f32" {
		return `loop {
					let old = atomicLoad(&scratch[SINK_IDX]);
					let nv = bitcast<u32>(bitcast<f32>(old) + tot);
					let r = atomicCompareExchangeWeak(&scratch[SINK_IDX], old, nv);
					if (r.exchanged) { break; }
				}`
	}
	return `atomicAdd(&scratch[SINK_IDX], bitcast<u32>(tot));`
}

// GenerateShader emits the WGSL scan kernel with all constants baked in.
//
// Workgroups grab a virtual position from the counter so the look-back
// only ever waits on positions that already started. Without portable
// subgroups the per-chunk scan runs over shared memory with barriers, and
// the look-back is walked by invocation 0 alone; it publishes the value
// word before the status word and spins without touching any barrier.
func (k *ScanKernel) GenerateShader() string {
	elem := k.Spec.Elem
	zero := map[string]string{"u32": "0u", "i32": "0", "f32": "0.0"}[elem]
	excl := 0
	if k.Spec.Exclusive {
		excl = 1
	}

	return fmt.Sprintf(`
		const WG : u32 = %du;
		const CHUNKS : u32 = %du;
		const LOOKBACK_WINDOW : i32 = %d;
		const N : u32 = %du;
		const COUNTER_IDX : u32 = %du;
		const SINK_IDX : u32 = %du;
		const EXCLUSIVE : u32 = %du;
		const ZERO : %s = %s;

		const STATUS_INVALID : u32 = 0u;
		const STATUS_AGGREGATE : u32 = 1u;
		const STATUS_INCLUSIVE : u32 = 2u;

		@group(0) @binding(0) var<storage, read> input : array<%s>;
		@group(0) @binding(1) var<storage, read_write> output : array<%s>;
		@group(0) @binding(2) var<storage, read_write> scratch : array<atomic<u32>>;

		var<workgroup> sh : array<%s, %d>;
		var<workgroup> wg_vid : u32;
		var<workgroup> wg_prefix : %s;

		fn cell_publish(i : u32, status : u32, v : %s) {
			var slot = i * 3u + 1u;
			if (status == STATUS_INCLUSIVE) { slot = i * 3u + 2u; }
			atomicStore(&scratch[slot], bitcast<u32>(v));
			atomicStore(&scratch[i * 3u], status);
		}

		@compute @workgroup_size(%d)
		fn main(@builtin(local_invocation_id) local_id : vec3<u32>) {
			let lid = local_id.x;
			if (lid == 0u) {
				wg_vid = atomicAdd(&scratch[COUNTER_IDX], 1u);
			}
			workgroupBarrier();
			let vid = wg_vid;
			let base = vid * WG * CHUNKS;

			var data : array<%s, CHUNKS>;
			var carry : %s = ZERO;
			for (var c = 0u; c < CHUNKS; c = c + 1u) {
				let idx = base + c * WG + lid;
				var x : %s = ZERO;
				if (idx < N) { x = input[idx]; }
				sh[lid] = x;
				workgroupBarrier();
				for (var d = 1u; d < WG; d = d << 1u) {
					var t : %s = ZERO;
					if (lid >= d) { t = sh[lid - d]; }
					workgroupBarrier();
					sh[lid] = sh[lid] + t;
					workgroupBarrier();
				}
				var v = sh[lid] + carry;
				if (EXCLUSIVE == 1u) {
					v = carry;
					if (lid > 0u) { v = sh[lid - 1u] + carry; }
				}
				data[c] = v;
				carry = carry + sh[WG - 1u];
				workgroupBarrier();
			}

			if (lid == 0u) {
				if (vid == 0u) {
					wg_prefix = ZERO;
					cell_publish(vid, STATUS_INCLUSIVE, carry);
				} else {
					cell_publish(vid, STATUS_AGGREGATE, carry);
					var exclusive : %s = ZERO;
					var wbase : i32 = i32(vid) - 1;
					var found = false;
					loop {
						var l : i32 = 0;
						loop {
							if (l >= LOOKBACK_WINDOW) { break; }
							let ib = wbase - l;
							if (ib < 0) { found = true; break; }
							var st : u32 = STATUS_INVALID;
							loop {
								st = atomicLoad(&scratch[u32(ib) * 3u]);
								if (st != STATUS_INVALID) { break; }
							}
							var slot = u32(ib) * 3u + 1u;
							if (st == STATUS_INCLUSIVE) { slot = u32(ib) * 3u + 2u; }
							exclusive = exclusive + bitcast<%s>(atomicLoad(&scratch[slot]));
							if (st == STATUS_INCLUSIVE) { found = true; break; }
							l = l + 1;
						}
						if (found) { break; }
						wbase = wbase - LOOKBACK_WINDOW;
					}
					wg_prefix = exclusive;
					cell_publish(vid, STATUS_INCLUSIVE, exclusive + carry);
				}
			}
			workgroupBarrier();
			let prefix = wg_prefix;

			for (var c = 0u; c < CHUNKS; c = c + 1u) {
				let idx = base + c * WG + lid;
				if (idx < N) {
					let v = data[c] + prefix;
					output[idx] = v;
					if (idx == N - 1u) {
						var tot = v;
						if (EXCLUSIVE == 1u) { tot = tot + input[idx]; }
						%s
					}
				}
			}
		}
	`,
		ScanWorkgroup, ScanChunks, scanWindow, k.Spec.N,
		k.counterOff/4, k.sinkOff/4, excl,
		elem, zero,
		elem, elem,
		elem, ScanWorkgroup, elem, elem,
		ScanWorkgroup,
		elem, elem, elem, elem,
		elem, elem,
		k.sinkUpdate())
}

func (k *ScanKernel) AllocateBuffers(ctx *Context, labelPrefix string, input []byte) error {
	var err error
	k.InputBuffer, err = ctx.Device.CreateBufferInit(&wgpu.BufferInitDescriptor{
		Label:    labelPrefix + "_In",
		Contents: input,
		Usage:    wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return err
	}
	k.OutputBuffer, err = ctx.Device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: labelPrefix + "_Out",
		Size:  uint64(k.Spec.N * 4),
		Usage: wgpu.BufferUsageStorage | wgpu.BufferUsageCopySrc,
	})
	if err != nil {
		return err
	}
	// Zero-filled: every status cell starts invalid and the counter and
	// total start at zero.
	k.ScratchBuffer, err = NewZeroBuffer(labelPrefix+"_Scratch", k.scratchBytes(),
		wgpu.BufferUsageStorage|wgpu.BufferUsageCopySrc)
	return err
}

func (k *ScanKernel) Compile(ctx *Context, labelPrefix string) error {
	module, err := ctx.Device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          labelPrefix + "_Shader",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: k.GenerateShader()},
	})
	if err != nil {
		return err
	}
	k.pipeline, err = ctx.Device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label:   labelPrefix + "_Pipe",
		Compute: wgpu.ProgrammableStageDescriptor{Module: module, EntryPoint: "main"},
	})
	return err
}

func (k *ScanKernel) CreateBindGroup(ctx *Context, labelPrefix string) error {
	var err error
	k.bindGroup, err = ctx.Device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  labelPrefix + "_Bind",
		Layout: k.pipeline.GetBindGroupLayout(0),
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: k.InputBuffer, Size: k.InputBuffer.GetSize()},
			{Binding: 1, Buffer: k.OutputBuffer, Size: k.OutputBuffer.GetSize()},
			{Binding: 2, Buffer: k.ScratchBuffer, Size: k.ScratchBuffer.GetSize()},
		},
	})
	return err
}

func (k *ScanKernel) Dispatch(pass *wgpu.ComputePassEncoder) {
	pass.SetPipeline(k.pipeline)
	pass.SetBindGroup(0, k.bindGroup, nil)
	pass.DispatchWorkgroups(uint32(k.nblocks), 1, 1)
}

func (k *ScanKernel) Cleanup() {
	if k.InputBuffer != nil {
		k.InputBuffer.Destroy()
	}
	if k.OutputBuffer != nil {
		k.OutputBuffer.Destroy()
	}
	if k.ScratchBuffer != nil {
		k.ScratchBuffer.Destroy()
	}
	if k.pipeline != nil {
		k.pipeline.Release()
	}
	if k.bindGroup != nil {
		k.bindGroup.Release()
	}
}
