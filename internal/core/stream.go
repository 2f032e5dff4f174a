package core

import "io"

// Stream is captured output of an attempt: stdout, stderr or tracer output.
// It is immutable once captured.
type Stream struct {
	attempt Attempt
	subject string
	data    []byte
}

// NewStream tags captured bytes with their attempt and subject.
func NewStream(attempt Attempt, subject string, data []byte) *Stream {
	return &Stream{attempt: attempt, subject: subject, data: data}
}

func (s *Stream) Attempt() Attempt { return s.attempt }
func (s *Stream) Subject() string { return s.subject }

// Extension is "trace" for syscall traces and "log" otherwise.
func (s *Stream) Extension() string {
	if s.subject == SubjectSyscalls {
		return ExtensionTrace
	}
	return ExtensionLog
}

// Bytes returns the captured data.
func (s *Stream) Bytes() []byte { return s.data }

// Render writes the captured data verbatim.
func (s *Stream) Render(w io.Writer) error {
	_, err := w.Write(s.data)
	return err
}
