package main

/*
#include <stdlib.h>
#include <stdint.h>
*/
import "C"

import (
	"encoding/json"
	"fmt"
	"unsafe"

	"github.com/openfluke/sweep/detector"
	"github.com/openfluke/sweep/scan"
)

// Helper functions for JSON responses
func errJSON(msg string) *C.char {
	return C.CString(fmt.Sprintf(`{"error": "%s"}`, msg))
}

func asJSON(v interface{}) *C.char {
	data, err := json.Marshal(v)
	if err != nil {
		return errJSON(err.Error())
	}
	return C.CString(string(data))
}

func carr[T scan.Element](p unsafe.Pointer, n C.int) []T {
	return (*[1 << 30]T)(p)[:n:n]
}

//export Sweep_InclusiveSumU32
func Sweep_InclusiveSumU32(in *C.uint32_t, out *C.uint32_t, n C.int) C.uint32_t {
	if n <= 0 {
		return 0
	}
	return C.uint32_t(scan.InclusiveSum(int(n),
		carr[uint32](unsafe.Pointer(in), n), carr[uint32](unsafe.Pointer(out), n)))
}

//export Sweep_ExclusiveSumU32
func Sweep_ExclusiveSumU32(in *C.uint32_t, out *C.uint32_t, n C.int) C.uint32_t {
	if n <= 0 {
		return 0
	}
	return C.uint32_t(scan.ExclusiveSum(int(n),
		carr[uint32](unsafe.Pointer(in), n), carr[uint32](unsafe.Pointer(out), n)))
}

//export Sweep_InclusiveSumI32
func Sweep_InclusiveSumI32(in *C.int32_t, out *C.int32_t, n C.int) C.int32_t {
	if n <= 0 {
		return 0
	}
	return C.int32_t(scan.InclusiveSum(int(n),
		carr[int32](unsafe.Pointer(in), n), carr[int32](unsafe.Pointer(out), n)))
}

//export Sweep_ExclusiveSumI32
func Sweep_ExclusiveSumI32(in *C.int32_t, out *C.int32_t, n C.int) C.int32_t {
	if n <= 0 {
		return 0
	}
	return C.int32_t(scan.ExclusiveSum(int(n),
		carr[int32](unsafe.Pointer(in), n), carr[int32](unsafe.Pointer(out), n)))
}

//export Sweep_InclusiveSumI64
func Sweep_InclusiveSumI64(in *C.int64_t, out *C.int64_t, n C.int) C.int64_t {
	if n <= 0 {
		return 0
	}
	return C.int64_t(scan.InclusiveSum(int(n),
		carr[int64](unsafe.Pointer(in), n), carr[int64](unsafe.Pointer(out), n)))
}

//export Sweep_ExclusiveSumI64
func Sweep_ExclusiveSumI64(in *C.int64_t, out *C.int64_t, n C.int) C.int64_t {
	if n <= 0 {
		return 0
	}
	return C.int64_t(scan.ExclusiveSum(int(n),
		carr[int64](unsafe.Pointer(in), n), carr[int64](unsafe.Pointer(out), n)))
}

//export Sweep_InclusiveSumF32
func Sweep_InclusiveSumF32(in *C.float, out *C.float, n C.int) C.float {
	if n <= 0 {
		return 0
	}
	return C.float(scan.InclusiveSum(int(n),
		carr[float32](unsafe.Pointer(in), n), carr[float32](unsafe.Pointer(out), n)))
}

//export Sweep_ExclusiveSumF32
func Sweep_ExclusiveSumF32(in *C.float, out *C.float, n C.int) C.float {
	if n <= 0 {
		return 0
	}
	return C.float(scan.ExclusiveSum(int(n),
		carr[float32](unsafe.Pointer(in), n), carr[float32](unsafe.Pointer(out), n)))
}

//export Sweep_InclusiveSumF64
func Sweep_InclusiveSumF64(in *C.double, out *C.double, n C.int) C.double {
	if n <= 0 {
		return 0
	}
	return C.double(scan.InclusiveSum(int(n),
		carr[float64](unsafe.Pointer(in), n), carr[float64](unsafe.Pointer(out), n)))
}

//export Sweep_ExclusiveSumF64
func Sweep_ExclusiveSumF64(in *C.double, out *C.double, n C.int) C.double {
	if n <= 0 {
		return 0
	}
	return C.double(scan.ExclusiveSum(int(n),
		carr[float64](unsafe.Pointer(in), n), carr[float64](unsafe.Pointer(out), n)))
}

//export Sweep_Detect
func Sweep_Detect() *C.char {
	rep, err := detector.Detect()
	if err != nil {
		return errJSON(err.Error())
	}
	return asJSON(rep)
}

//export Sweep_Free
func Sweep_Free(p *C.char) {
	C.free(unsafe.Pointer(p))
}

func main() {}
