// Package procutil holds the platform specific parts of spawning, signalling
// and reaping supervised processes.
package procutil
