package pods

import (
	"errors"

	"github.com/openfluke/sweep/scan"
)

type ScanIn struct {
	In        []uint32
	Inclusive bool
}
type ScanOut struct {
	Out   []uint32
	Total uint32
}

type ScanPod struct{}

func (ScanPod) Name() string { return "primitives/scan" }

func (ScanPod) Run(x *ExecContext, in any) (any, error) {
	args, ok := in.(ScanIn)
	if !ok {
		return nil, errors.New("ScanIn expected")
	}
	if x.UseGPU && x.GPU != nil {
		out, total, err := x.GPU.DispatchScanU32(args.In, args.Inclusive)
		if err == nil {
			return ScanOut{Out: out, Total: total}, nil
		}
		if !errors.Is(err, ErrNoGPU) {
			return nil, err
		}
		// no adapter; fall through to the CPU engine
	}
	out := make([]uint32, len(args.In))
	var total uint32
	if args.Inclusive {
		total = scan.InclusiveSum(len(args.In), args.In, out)
	} else {
		total = scan.ExclusiveSum(len(args.In), args.In, out)
	}
	return ScanOut{Out: out, Total: total}, nil
}
