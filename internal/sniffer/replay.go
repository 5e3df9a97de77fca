package sniffer

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"github.com/rs/zerolog"

	"github.com/soyunomas/sniffguard/internal/dispatch"
)

// pcapng files start with a section header block.
var ngMagic = []byte{0x0a, 0x0d, 0x0d, 0x0a}

type packetSource interface {
	ReadPacketData() ([]byte, gopacket.CaptureInfo, error)
	LinkType() layers.LinkType
}

// Replayer feeds a pcap or pcapng capture file through the same ingest
// path as live capture.
type Replayer struct {
	f      *os.File
	src    packetSource
	path   string
	logger zerolog.Logger
	frames int
}

// OpenReplay opens path and checks its header and link type.
func OpenReplay(path string, logger zerolog.Logger) (*Replayer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open capture %s: %w", path, err)
	}

	src, err := openSource(bufio.NewReader(f))
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("read capture %s: %w", path, err)
	}
	if lt := src.LinkType(); lt != layers.LinkTypeEthernet {
		f.Close()
		return nil, fmt.Errorf("capture %s: unsupported link type %s", path, lt)
	}

	return &Replayer{f: f, src: src, path: path, logger: logger}, nil
}

// Run hands every frame to ingest in file order until the file ends, ctx
// is cancelled or the pipeline closes.
func (r *Replayer) Run(ctx context.Context, ingest IngestFunc) error {
	r.logger.Info().Str("file", r.path).Msg("📼 Replaying capture")

	for {
		if ctx.Err() != nil {
			return nil
		}
		data, ci, err := r.src.ReadPacketData()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("capture %s frame %d: %w", r.path, r.frames+1, err)
		}

		switch err := ingest(ci, data); {
		case err == nil, errors.Is(err, dispatch.ErrQueueFull):
			r.frames++
		case errors.Is(err, dispatch.ErrPoolClosed):
			return nil
		default:
			return err
		}
	}
}

// Frames is the number of frames handed to ingest so far.
func (r *Replayer) Frames() int { return r.frames }

func (r *Replayer) Close() error { return r.f.Close() }

func openSource(r *bufio.Reader) (packetSource, error) {
	magic, err := r.Peek(len(ngMagic))
	if err != nil {
		return nil, err
	}
	if bytes.Equal(magic, ngMagic) {
		ng, err := pcapgo.NewNgReader(r, pcapgo.DefaultNgReaderOptions)
		if err != nil {
			return nil, err
		}
		return ng, nil
	}
	pr, err := pcapgo.NewReader(r)
	if err != nil {
		return nil, err
	}
	return pr, nil
}
