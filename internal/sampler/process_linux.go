package sampler

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

// cpuSetSize is the number of CPUs a unix.CPUSet can describe.
const cpuSetSize = 1024

func procRoot() string {
	if root := os.Getenv("HOST_PROC"); root != "" {
		return root
	}
	return "/proc"
}

// childPIDs reads /proc/<pid>/task/<tid>/children for every thread. It fails
// when the kernel does not expose the children files.
func childPIDs(pid int32) ([]int32, error) {
	taskDir := filepath.Join(procRoot(), strconv.Itoa(int(pid)), "task")
	tasks, err := os.ReadDir(taskDir)
	if err != nil {
		return nil, err
	}

	var pids []int32
	var lastErr error
	read := 0
	for _, task := range tasks {
		data, err := os.ReadFile(filepath.Join(taskDir, task.Name(), "children"))
		if err != nil {
			// The thread may have exited since the directory was listed.
			lastErr = err
			continue
		}
		read++
		for _, field := range strings.Fields(string(data)) {
			child, err := strconv.ParseInt(field, 10, 32)
			if err != nil {
				return nil, err
			}
			pids = append(pids, int32(child))
		}
	}
	if read == 0 {
		if lastErr == nil {
			lastErr = errors.New("no readable task")
		}
		return nil, lastErr
	}
	return pids, nil
}

func cpuAffinity(pid int32) ([]int32, error) {
	var set unix.CPUSet
	if err := unix.SchedGetaffinity(int(pid), &set); err != nil {
		return nil, err
	}
	want := set.Count()
	cpus := make([]int32, 0, want)
	for cpu := 0; cpu < cpuSetSize && len(cpus) < want; cpu++ {
		if set.IsSet(cpu) {
			cpus = append(cpus, int32(cpu))
		}
	}
	return cpus, nil
}
