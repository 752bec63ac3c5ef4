package pods

import (
	"errors"
	"testing"
)

func TestScanPodInclusive(t *testing.T) {
	x := NewContext(nil)
	res, err := ScanPod{}.Run(x, ScanIn{In: []uint32{1, 2, 3, 4}, Inclusive: true})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	out := res.(ScanOut)
	want := []uint32{1, 3, 6, 10}
	for i := range want {
		if out.Out[i] != want[i] {
			t.Fatalf("out[%d] = %d, want %d", i, out.Out[i], want[i])
		}
	}
	if out.Total != 10 {
		t.Fatalf("total = %d, want 10", out.Total)
	}
}

func TestScanPodExclusive(t *testing.T) {
	x := NewContext(nil)
	res, err := ScanPod{}.Run(x, ScanIn{In: []uint32{5, 5, 5}, Inclusive: false})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	out := res.(ScanOut)
	want := []uint32{0, 5, 10}
	for i := range want {
		if out.Out[i] != want[i] {
			t.Fatalf("out[%d] = %d, want %d", i, out.Out[i], want[i])
		}
	}
	if out.Total != 15 {
		t.Fatalf("total = %d, want 15", out.Total)
	}
}

func TestScanPodBadInput(t *testing.T) {
	if _, err := (ScanPod{}).Run(NewContext(nil), 42); err == nil {
		t.Fatal("expected error for wrong input type")
	}
}

func TestReducePod(t *testing.T) {
	x := NewContext(nil)
	cases := []struct {
		kind string
		want float32
	}{
		{"sum", 10},
		{"min", 1},
		{"max", 4},
	}
	for _, c := range cases {
		res, err := ReducePod{}.Run(x, ReduceIn{In: []float32{3, 1, 4, 2}, Kind: c.kind})
		if err != nil {
			t.Fatalf("%s: %v", c.kind, err)
		}
		if got := res.(ReduceOut).Value; got != c.want {
			t.Fatalf("%s = %v, want %v", c.kind, got, c.want)
		}
	}
	if _, err := (ReducePod{}).Run(x, ReduceIn{In: []float32{1}, Kind: "median"}); err == nil {
		t.Fatal("expected error for unknown kind")
	}
}

func TestReducePodEmpty(t *testing.T) {
	res, err := ReducePod{}.Run(NewContext(nil), ReduceIn{In: nil, Kind: "sum"})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.(ReduceOut).Value != 0 {
		t.Fatal("empty reduce must be zero")
	}
}

func TestNoopGPUReportsErrNoGPU(t *testing.T) {
	var g GPUHooks = noopGPU{}
	if _, _, err := g.DispatchScanU32([]uint32{1}, true); !errors.Is(err, ErrNoGPU) {
		t.Fatalf("err = %v, want ErrNoGPU", err)
	}
	if _, err := g.DispatchReduceF32([]float32{1}, "sum"); !errors.Is(err, ErrNoGPU) {
		t.Fatalf("err = %v, want ErrNoGPU", err)
	}
}

func TestRegistry(t *testing.T) {
	ran := false
	Register("demo/noop", func() error { ran = true; return nil })
	found := false
	for _, n := range Names() {
		if n == "demo/noop" {
			found = true
		}
	}
	if !found {
		t.Fatal("registered runner missing from Names")
	}
	if err := Run("demo/noop"); err != nil || !ran {
		t.Fatalf("run: err=%v ran=%v", err, ran)
	}
	if err := Run("demo/missing"); err == nil {
		t.Fatal("expected error for unknown pod")
	}
}
