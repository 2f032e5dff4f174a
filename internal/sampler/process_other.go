//go:build !linux

package sampler

func childPIDs(int32) ([]int32, error) { return nil, errUnsupported }

func cpuAffinity(int32) ([]int32, error) { return nil, errUnsupported }
