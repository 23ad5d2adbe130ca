/*
Package workers provides utilities for determining worker pool sizes in
containerized environments.

When running in containers, the number of available CPUs may be limited
by cgroup constraints. Go 1.19+ sets GOMAXPROCS from the container CPU
limit, but runtime.NumCPU() still reports the host machine's count. The
helpers here size pools from GOMAXPROCS so probe and thumbnail workers
respect pod limits:

	// CPU-bound work (frame decoding, image resizing)
	n := workers.ForCPU(8)

	// I/O-bound work (ffprobe shell-outs, file sweeps)
	n := workers.ForIO(16)

All functions honor the PROBE_WORKERS environment variable, letting
operators override the calculation per deployment.
*/
package workers
