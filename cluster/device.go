package cluster

import (
	"runtime"
	"strings"

	"golang.org/x/sys/cpu"
)

// Device is the compute device a Clusterer runs on.
type Device interface {
	// Name identifies the device in logs.
	Name() string

	// EmptyCache releases cached device memory. It is called before and
	// after every clustering run.
	EmptyCache() error
}

// CPU is the host device. EmptyCache is a no-op.
type CPU struct{}

// Name reports the architecture and the SIMD extensions detected at startup.
func (CPU) Name() string {
	var feats []string
	switch runtime.GOARCH {
	case "amd64":
		if cpu.X86.HasAVX512F {
			feats = append(feats, "avx512f")
		}
		if cpu.X86.HasAVX2 {
			feats = append(feats, "avx2")
		}
		if cpu.X86.HasFMA {
			feats = append(feats, "fma")
		}
	case "arm64":
		if cpu.ARM64.HasASIMD {
			feats = append(feats, "asimd")
		}
		if cpu.ARM64.HasSVE {
			feats = append(feats, "sve")
		}
	}
	if len(feats) == 0 {
		return "cpu/" + runtime.GOARCH
	}
	return "cpu/" + runtime.GOARCH + "(" + strings.Join(feats, ",") + ")"
}

// EmptyCache implements Device.
func (CPU) EmptyCache() error { return nil }
