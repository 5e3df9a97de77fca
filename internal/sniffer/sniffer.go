package sniffer

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/google/gopacket"
	"github.com/mdlayher/packet"
	"github.com/rs/zerolog"
	"golang.org/x/net/bpf"

	"github.com/soyunomas/sniffguard/internal/config"
	"github.com/soyunomas/sniffguard/internal/dispatch"
	"github.com/soyunomas/sniffguard/internal/telemetry"
)

// ethAll is ETH_P_ALL in host form; packet.Listen converts it.
const ethAll = 0x0003

const statsInterval = 5 * time.Second

// IngestFunc receives every captured frame. data is only valid for the
// duration of the call.
type IngestFunc func(ci gopacket.CaptureInfo, data []byte) error

// frameReader is the part of *packet.Conn the read loop needs.
type frameReader interface {
	ReadFrom(b []byte) (int, net.Addr, error)
	SetReadDeadline(t time.Time) error
}

// Sniffer is an open AF_PACKET socket bound to one interface.
type Sniffer struct {
	conn   *packet.Conn
	ifi    *net.Interface
	cfg    *config.NetworkConfig
	logger zerolog.Logger
}

// Open binds the raw socket and installs the kernel filter. Every setup
// failure is returned here, before any frame is read.
func Open(cfg *config.NetworkConfig, logger zerolog.Logger) (*Sniffer, error) {
	ifi, err := net.InterfaceByName(cfg.Interface)
	if err != nil {
		return nil, fmt.Errorf("interface %s not found: %w", cfg.Interface, err)
	}

	conn, err := packet.Listen(ifi, packet.Raw, ethAll, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open raw socket on %s: %w", cfg.Interface, err)
	}

	if cfg.Promiscuous {
		if err := conn.SetPromiscuous(true); err != nil {
			logger.Warn().Err(err).Str("iface", cfg.Interface).Msg("failed to set promiscuous mode")
		}
	}

	mode := "all frames"
	if cfg.KernelFilter {
		filter, err := KernelFilter(cfg.SnapLen)
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("BPF assembly failed: %w", err)
		}
		if err := conn.SetBPF(filter); err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to apply BPF filter: %w", err)
		}
		mode = "IPv4/ARP only"
	}

	logger.Info().Str("iface", cfg.Interface).Str("bpf", mode).Int("snaplen", cfg.SnapLen).Msg("🛡️  Sniffer active")
	return &Sniffer{conn: conn, ifi: ifi, cfg: cfg, logger: logger}, nil
}

// Run captures until ctx is cancelled or the pipeline stops accepting
// frames.
func (s *Sniffer) Run(ctx context.Context, ingest IngestFunc) error {
	go monitorDrops(ctx, s.conn, s.logger)

	buf := make([]byte, s.cfg.SnapLen)
	return capture(ctx, s.conn, buf, s.cfg.ReadTimeout(), s.ifi.Index, ingest, s.logger)
}

func (s *Sniffer) Close() error { return s.conn.Close() }

// KernelFilter keeps IPv4 and ARP frames, truncated to snaplen, and drops
// everything else before it reaches user space.
func KernelFilter(snaplen int) ([]bpf.RawInstruction, error) {
	return bpf.Assemble([]bpf.Instruction{
		bpf.LoadAbsolute{Off: 12, Size: 2},
		bpf.JumpIf{Cond: bpf.JumpEqual, Val: 0x0800, SkipTrue: 2},
		bpf.JumpIf{Cond: bpf.JumpEqual, Val: 0x0806, SkipTrue: 1},
		bpf.RetConstant{Val: 0},
		bpf.RetConstant{Val: uint32(snaplen)},
	})
}

// capture is the read loop. The read deadline bounds how long a
// cancellation can go unnoticed on an idle link.
func capture(ctx context.Context, r frameReader, buf []byte, timeout time.Duration, ifIndex int, ingest IngestFunc, logger zerolog.Logger) error {
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		if err := r.SetReadDeadline(time.Now().Add(timeout)); err != nil {
			return fmt.Errorf("set read deadline: %w", err)
		}

		n, _, err := r.ReadFrom(buf)
		if err != nil {
			switch {
			case isTimeout(err):
				continue
			case errors.Is(err, net.ErrClosed):
				return nil
			}
			logger.Warn().Err(err).Msg("⚠️ Error reading frame")
			continue
		}

		ci := gopacket.CaptureInfo{
			Timestamp:      time.Now(),
			CaptureLength:  n,
			Length:         n,
			InterfaceIndex: ifIndex,
		}
		switch err := ingest(ci, buf[:n]); {
		case err == nil, errors.Is(err, dispatch.ErrQueueFull):
		case errors.Is(err, dispatch.ErrPoolClosed):
			return nil
		default:
			return err
		}
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// monitorDrops polls the socket counters off the hot path and exports
// kernel-side drops (ring buffer full). Each Stats call resets the kernel
// counters, so every reading is already a delta.
func monitorDrops(ctx context.Context, conn *packet.Conn, logger zerolog.Logger) {
	ticker := time.NewTicker(statsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats, err := conn.Stats()
			if err != nil || stats.Drops == 0 {
				continue
			}
			telemetry.SocketDrops.Add(float64(stats.Drops))
			if stats.Drops > 100 {
				logger.Warn().Uint64("lost", uint64(stats.Drops)).Msg("⚠️ KERNEL DROPS DETECTED (buffer full)")
			}
		}
	}
}
