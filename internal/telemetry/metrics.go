package telemetry

import (
	"encoding/binary"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Latency buckets in nanoseconds, 1µs to 1ms.
var processingBuckets = []float64{1000, 5000, 10000, 50000, 100000, 500000, 1000000}

// Standard Ethernet frame sizes.
var sizeBuckets = []float64{60, 64, 128, 256, 512, 1024, 1518, 4096, 9000}

var (
	RxFrames = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sniffguard_rx_frames_total",
		Help: "Frames ingested by ethertype and cast type",
	}, []string{"ethertype", "cast"})

	RxBytes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sniffguard_rx_bytes_total",
		Help: "Bytes ingested by ethertype",
	}, []string{"ethertype"})

	Detections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sniffguard_detections_total",
		Help: "Frames classified as attacks or violations",
	}, []string{"rule", "kind"})

	// Distinct SYN sources seen so far.
	SynSources = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sniffguard_syn_sources",
		Help: "Distinct source addresses that sent SYN-only segments",
	})

	QueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sniffguard_queue_depth",
		Help: "Frames waiting in the work queue",
	})

	FramesDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sniffguard_frames_dropped_total",
		Help: "Frames never analysed, by reason (queue_full, closed, discarded)",
	}, []string{"reason"})

	ProcessingTime = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sniffguard_processing_ns",
		Help:    "Time taken to analyse a frame in nanoseconds",
		Buckets: processingBuckets,
	})

	// Blind spots: frames the kernel dropped before we could read them.
	SocketDrops = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sniffguard_socket_drops_total",
		Help: "Frames dropped by the kernel socket due to buffer overflow",
	})

	FrameSizes = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sniffguard_frame_size_bytes",
		Help:    "Distribution of captured frame sizes in bytes",
		Buckets: sizeBuckets,
	})

	ArpOps = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sniffguard_arp_ops_total",
		Help: "ARP operations breakdown (request/reply)",
	}, []string{"operation"})
)

// EtherTypeLabel maps an ethertype to a bounded label set so fuzzed
// traffic cannot blow up cardinality.
func EtherTypeLabel(eType uint16) string {
	switch eType {
	case 0x0800:
		return "IPv4"
	case 0x0806:
		return "ARP"
	case 0x86DD:
		return "IPv6"
	case 0x8100, 0x88A8:
		return "VLAN_Tagged"
	case 0x88CC:
		return "LLDP"
	}
	if eType < 1536 {
		return "Non-IP"
	}
	return "Other_Eth2"
}

// TrackFrame updates the ingest metrics straight from the raw bytes.
// Zero-alloc, runs on the capture path.
func TrackFrame(data []byte) {
	length := len(data)
	FrameSizes.Observe(float64(length))
	if length < 14 {
		RxFrames.WithLabelValues("runt", "unknown").Inc()
		return
	}

	cast := "unicast"
	if data[0]&data[1]&data[2]&data[3]&data[4]&data[5] == 0xFF {
		cast = "broadcast"
	} else if data[0]&0x01 == 1 {
		cast = "multicast"
	}

	eTypeVal := binary.BigEndian.Uint16(data[12:14])
	sType := EtherTypeLabel(eTypeVal)

	RxFrames.WithLabelValues(sType, cast).Inc()
	RxBytes.WithLabelValues(sType).Add(float64(length))

	// Eth (14) + ARP opcode offset (6) = byte 20.
	if eTypeVal == 0x0806 && length >= 22 {
		switch binary.BigEndian.Uint16(data[20:22]) {
		case 1:
			ArpOps.WithLabelValues("request").Inc()
		case 2:
			ArpOps.WithLabelValues("reply").Inc()
		default:
			ArpOps.WithLabelValues("other").Inc()
		}
	}
}
