package sampler

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/shirou/gopsutil/v3/net"

	"github.com/RoyMattar/runner/internal/core"
)

type connReading struct {
	Conns []net.ConnectionStat
}

func (r connReading) String() string {
	parts := make([]string, 0, len(r.Conns))
	for _, c := range r.Conns {
		parts = append(parts, fmt.Sprintf("%s->%s %s", formatAddr(c.Laddr), formatAddr(c.Raddr), c.Status))
	}
	return fmt.Sprintf("%d [%s]", len(r.Conns), strings.Join(parts, ", "))
}

func formatAddr(a net.Addr) string {
	if a.IP == "" && a.Port == 0 {
		return "-"
	}
	return fmt.Sprintf("%s:%d", a.IP, a.Port)
}

type netIOReading struct {
	BytesSent   uint64
	BytesRecv   uint64
	PacketsSent uint64
	PacketsRecv uint64
	Errin       uint64
	Errout      uint64
	Dropin      uint64
	Dropout     uint64
}

func (r netIOReading) String() string {
	return fmt.Sprintf("bytes_sent=%d bytes_recv=%d packets_sent=%d packets_recv=%d errin=%d errout=%d dropin=%d dropout=%d",
		r.BytesSent, r.BytesRecv, r.PacketsSent, r.PacketsRecv, r.Errin, r.Errout, r.Dropin, r.Dropout)
}

// Network samples the child's open connections together with the system-wide
// network counters.
type Network struct {
	base
	conns Series[connReading]
	io    Series[netIOReading]
}

// NewNetwork creates a network sampler.
func NewNetwork(attempt core.Attempt, proc Process, opts Options) *Network {
	return &Network{base: newBase(attempt, core.SubjectNetwork, proc, opts)}
}

// Sample polls until the child exits.
func (n *Network) Sample(ctx context.Context) error {
	return n.poll(ctx, func(ctx context.Context) error {
		conns, err := n.proc.ConnectionsWithContext(ctx)
		if err != nil {
			return err
		}
		n.conns.Append(connReading{Conns: conns})
		counters, err := n.opts.NetCounters(ctx)
		if err != nil {
			return err
		}
		if len(counters) > 0 {
			c := counters[0]
			n.io.Append(netIOReading{
				BytesSent:   c.BytesSent,
				BytesRecv:   c.BytesRecv,
				PacketsSent: c.PacketsSent,
				PacketsRecv: c.PacketsRecv,
				Errin:       c.Errin,
				Errout:      c.Errout,
				Dropin:      c.Dropin,
				Dropout:     c.Dropout,
			})
		}
		return nil
	})
}

// Len returns the number of connection readings taken.
func (n *Network) Len() int { return n.conns.Len() }

// Render writes the connection and counter sections and the last counters.
func (n *Network) Render(w io.Writer) error {
	if _, err := io.WriteString(w, "Connections:\n"); err != nil {
		return err
	}
	if err := n.conns.WriteLines(w); err != nil {
		return err
	}
	if _, err := io.WriteString(w, "\nNetwork IO:\n"); err != nil {
		return err
	}
	if err := n.io.WriteLines(w); err != nil {
		return err
	}
	last, ok := n.io.Last()
	if !ok {
		return nil
	}
	_, err := fmt.Fprintf(w, "\nTotal network I/O counters: %s\n", last)
	return err
}
