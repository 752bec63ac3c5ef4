package pods

import (
	"context"
	"time"

	"github.com/openfluke/sweep/detector"
)

// Pod is a unit of work (scan, reduce, …).
type Pod interface {
	Name() string
	Run(ctx *ExecContext, in any) (out any, err error)
}

// ExecContext carries execution choices and capabilities.
type ExecContext struct {
	Ctx    context.Context
	UseGPU bool             // high-level knob; pods may override per-op
	Report *detector.Report // detector output (limits, features, recs)
	GPU    GPUHooks         // no-op unless a backend was attached
	Now    time.Time
}

func NewContext(rep *detector.Report) *ExecContext {
	return &ExecContext{
		Ctx:    context.Background(),
		UseGPU: false,
		Report: rep,
		GPU:    GPU,
		Now:    time.Now(),
	}
}

func (ec *ExecContext) WithGPU(g GPUHooks) *ExecContext {
	ec.GPU = g
	ec.UseGPU = g != nil
	return ec
}
