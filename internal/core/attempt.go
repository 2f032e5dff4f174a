package core

import (
	"io"
	"strings"
)

// Exit codes with a fixed meaning for the session.
const (
	ExitSuccess = 0
	// ExitFallback is reported when no attempt completed.
	ExitFallback = 1
	// ExitSignalBase is added to a signal number for children killed by a signal.
	ExitSignalBase = 128
)

// Diagnostic subjects, one file per (command, iteration, subject).
const (
	SubjectDiskIO   = "disk_io"
	SubjectMemory   = "memory"
	SubjectProcCPU  = "proc_th_cpu"
	SubjectNetwork  = "network"
	SubjectSyscalls = "strace"
	SubjectStdout   = "stdout"
	SubjectStderr   = "stderr"
)

// File extensions for diagnostic files.
const (
	ExtensionLog   = "log"
	ExtensionTrace = "trace"
)

// Attempt identifies one supervised execution of the command.
type Attempt struct {
	Command   string
	Iteration int
}

// Argv splits the command on whitespace. Quoting is not interpreted.
func (a Attempt) Argv() []string {
	return strings.Fields(a.Command)
}

// Name returns the first word of the command, used in diagnostic file names.
func (a Attempt) Name() string {
	argv := a.Argv()
	if len(argv) == 0 {
		return ""
	}
	return argv[0]
}

// Nameable is anything tagged with an attempt and a subject.
type Nameable interface {
	Attempt() Attempt
	Subject() string
}

// Persistable is a Nameable whose accumulated data can be rendered to a file.
type Persistable interface {
	Nameable
	// Extension is the file extension without the dot.
	Extension() string
	// Render writes the data. Output is a pure function of what was recorded.
	Render(w io.Writer) error
}
