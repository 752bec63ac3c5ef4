package pods

import (
	"errors"

	"github.com/openfluke/sweep/scan"
)

type ReduceIn struct {
	In   []float32
	Kind string // "sum"|"min"|"max"
}
type ReduceOut struct {
	Value float32
}

type ReducePod struct{}

func (ReducePod) Name() string { return "primitives/reduce" }

func (ReducePod) Run(x *ExecContext, in any) (any, error) {
	args, ok := in.(ReduceIn)
	if !ok {
		return nil, errors.New("ReduceIn expected")
	}
	if len(args.In) == 0 {
		return ReduceOut{0}, nil
	}
	if x.UseGPU && x.GPU != nil {
		if v, err := x.GPU.DispatchReduceF32(args.In, args.Kind); err == nil {
			return ReduceOut{Value: v}, nil
		} else if !errors.Is(err, ErrNoGPU) {
			return nil, err
		}
	}
	switch args.Kind {
	case "sum":
		// The scan engine's total is the reduction; outputs are discarded.
		total := scan.PrefixSum(len(args.In),
			func(i int) float32 { return args.In[i] },
			func(int, float32) {},
			scan.Inclusive)
		return ReduceOut{Value: total}, nil
	case "min":
		m := args.In[0]
		for _, v := range args.In[1:] {
			if v < m {
				m = v
			}
		}
		return ReduceOut{Value: m}, nil
	case "max":
		m := args.In[0]
		for _, v := range args.In[1:] {
			if v > m {
				m = v
			}
		}
		return ReduceOut{Value: m}, nil
	default:
		return nil, errors.New("unknown kind")
	}
}
