package report

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/soyunomas/sniffguard/internal/dispatch"
	"github.com/soyunomas/sniffguard/internal/telemetry"
	"github.com/soyunomas/sniffguard/internal/utils"
)

const (
	ethHeaderLen = 14
	bytesPerRow  = 20
)

// Dumper prints frames in hex and ASCII. Each frame is rendered into its
// own buffer and written with one call, so output from concurrent workers
// never interleaves.
type Dumper struct {
	mu sync.Mutex
	w  io.Writer
}

func NewDumper(w io.Writer) *Dumper {
	return &Dumper{w: w}
}

func (d *Dumper) Dump(f *dispatch.Frame) {
	var b bytes.Buffer
	Render(&b, f)

	d.mu.Lock()
	_, _ = d.w.Write(b.Bytes())
	d.mu.Unlock()
}

// Render writes the Ethernet header of f followed by its payload, 20
// bytes per row.
func Render(b *bytes.Buffer, f *dispatch.Frame) {
	data := f.Data
	fmt.Fprintf(b, "\n\n === PACKET %d HEADER ===\n", f.Seq)
	if len(data) < ethHeaderLen {
		fmt.Fprintf(b, "Truncated frame (%d bytes)\n", len(data))
		return
	}

	dst := net.HardwareAddr(data[0:6])
	src := net.HardwareAddr(data[6:12])
	eType := binary.BigEndian.Uint16(data[12:14])

	fmt.Fprintf(b, "Source MAC: %s\n", src)
	fmt.Fprintf(b, "Destination MAC: %s (%s)\n", dst, utils.MACRole(dst))
	fmt.Fprintf(b, "Type: 0x%04x (%s)\n", eType, telemetry.EtherTypeLabel(eType))
	fmt.Fprintf(b, " === PACKET %d DATA == \n", f.Seq)

	payload := data[ethHeaderLen:]
	for len(payload) > 0 {
		n := min(len(payload), bytesPerRow)
		for i := 0; i < bytesPerRow; i++ {
			if i < n {
				fmt.Fprintf(b, "%02x ", payload[i])
			} else {
				b.WriteString("   ")
			}
		}
		b.WriteString("| ")
		for _, c := range payload[:n] {
			if c > 31 && c < 127 {
				b.WriteByte(c)
			} else {
				b.WriteByte('.')
			}
		}
		b.WriteByte('\n')
		payload = payload[n:]
	}
}
