package dispatch

import (
	"sync/atomic"

	"github.com/google/gopacket"

	"github.com/soyunomas/sniffguard/internal/telemetry"
)

// Ingester is the capture callback boundary. Capture sources reuse their
// read buffer as soon as the callback returns, so every frame is copied
// into memory the pipeline owns before it is queued.
type Ingester struct {
	pool *Pool
	seq  atomic.Uint64
}

func NewIngester(pool *Pool) *Ingester {
	return &Ingester{pool: pool}
}

// Ingest copies data and enqueues it. It never blocks on workers; the
// returned error only says the frame was not queued (pool closed or
// bounded queue full).
func (in *Ingester) Ingest(ci gopacket.CaptureInfo, data []byte) error {
	n := ci.CaptureLength
	if n <= 0 || n > len(data) {
		n = len(data)
	}

	buf := make([]byte, n)
	copy(buf, data[:n])

	ci.CaptureLength = n
	if ci.Length < n {
		ci.Length = n
	}

	telemetry.TrackFrame(buf)

	return in.pool.Enqueue(&Frame{
		Seq:  in.seq.Add(1),
		Info: ci,
		Data: buf,
	})
}

// Captured is the number of frames handed to Ingest so far.
func (in *Ingester) Captured() uint64 { return in.seq.Load() }
