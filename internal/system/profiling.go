package system

import (
	"fmt"
	"os"
	"runtime"
	"runtime/pprof"
)

// StartProfiling starts CPU profiling into cpuprofile and returns the
// function that stops it. With an empty path it does nothing.
//
// The resulting profile can be analyzed with:
//   - go tool pprof [binary] [profile_file]
func StartProfiling(cpuprofile string) (stop func() error, err error) {
	if cpuprofile == "" {
		return func() error { return nil }, nil
	}
	f, err := os.Create(cpuprofile)
	if err != nil {
		return nil, fmt.Errorf("could not create cpu profile file: %w", err)
	}
	if err := pprof.StartCPUProfile(f); err != nil {
		f.Close()
		return nil, fmt.Errorf("could not start cpu profile: %w", err)
	}
	return func() error {
		pprof.StopCPUProfile()
		return f.Close()
	}, nil
}

// WriteHeapProfile writes a heap profile to memprofile. With an empty path
// it does nothing.
func WriteHeapProfile(memprofile string) error {
	if memprofile == "" {
		return nil
	}
	f, err := os.Create(memprofile)
	if err != nil {
		return fmt.Errorf("could not create memory profile file: %w", err)
	}
	defer f.Close()

	runtime.GC() // get up-to-date statistics
	if err := pprof.WriteHeapProfile(f); err != nil {
		return fmt.Errorf("could not write memory profile: %w", err)
	}
	return nil
}
