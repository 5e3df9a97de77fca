package detector

import (
	"net/netip"
	"time"

	"github.com/rs/zerolog"

	"github.com/soyunomas/sniffguard/internal/config"
	"github.com/soyunomas/sniffguard/internal/dispatch"
	"github.com/soyunomas/sniffguard/internal/telemetry"
)

// Rule names, as reported in Detection.Rule and the detections metric.
const (
	RuleSynFlood  = "SynFlood"
	RuleArpReply  = "ArpReply"
	RuleBlacklist = "Blacklist"
)

// Rule is one classification applied to every decoded frame. Rules only
// write into the Verdict; the engine applies it to the shared Tally.
type Rule interface {
	Name() string
	Inspect(p *packetView, v *Verdict)
}

// Detection describes one classified frame, reported after the tally
// was updated.
type Detection struct {
	Rule      string
	Kind      string
	Seq       uint64
	Source    netip.Addr
	NewSource bool
	Domain    string
}

type Option func(*Engine)

// WithDumper calls fn for every frame before analysis (verbose mode).
func WithDumper(fn func(f *dispatch.Frame)) Option {
	return func(e *Engine) { e.dump = fn }
}

// WithObserver calls fn for every detection. fn runs on worker goroutines
// and must not block.
func WithObserver(fn func(d Detection)) Option {
	return func(e *Engine) { e.observe = fn }
}

func WithLogger(l zerolog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// Engine is the analysis orchestrator shared by all workers. It holds the
// enabled rules and the Tally; per-worker decode state lives in Worker.
type Engine struct {
	rules   []Rule
	tally   *Tally
	domains []string

	dump    func(f *dispatch.Frame)
	observe func(d Detection)
	logger  zerolog.Logger
}

func NewEngine(cfg *config.DetectionConfig, opts ...Option) *Engine {
	e := &Engine{
		rules:  make([]Rule, 0, 3),
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}

	if cfg.SynFlood.Enabled {
		e.logger.Info().Msg("✅ Loaded rule: SynFlood (SYN-only segments)")
		e.rules = append(e.rules, NewSynFlood())
	}
	if cfg.ArpReply.Enabled {
		e.logger.Info().Msg("✅ Loaded rule: ArpReply (cache poisoning)")
		e.rules = append(e.rules, NewArpReply())
	}
	if cfg.Blacklist.Enabled {
		e.logger.Info().Strs("domains", cfg.Blacklist.Domains).Msg("✅ Loaded rule: Blacklist (HTTP GET)")
		e.rules = append(e.rules, NewBlacklist(&cfg.Blacklist))
		e.domains = cfg.Blacklist.Domains
	}

	e.tally = NewTally(e.domains)
	return e
}

func (e *Engine) Tally() *Tally { return e.tally }

// NewWorker returns a Handler with its own decoder, for exactly one
// worker goroutine. Its signature fits dispatch.NewPool.
func (e *Engine) NewWorker(id int) dispatch.Handler {
	return &Worker{id: id, engine: e, dec: newDecoder()}
}

// Worker runs decode and classification for one pool goroutine.
type Worker struct {
	id      int
	engine  *Engine
	dec     *decoder
	verdict Verdict
}

func (w *Worker) Handle(f *dispatch.Frame) {
	start := time.Now()
	e := w.engine

	if e.dump != nil {
		e.dump(f)
	}

	p := w.dec.decode(f.Data)
	if p == nil {
		telemetry.ProcessingTime.Observe(float64(time.Since(start).Nanoseconds()))
		return
	}

	v := &w.verdict
	v.reset()
	for _, rule := range e.rules {
		rule.Inspect(p, v)
	}

	if !v.Empty() {
		newSource := e.tally.Apply(v)
		e.report(f.Seq, v, newSource)
	}

	telemetry.ProcessingTime.Observe(float64(time.Since(start).Nanoseconds()))
}

func (e *Engine) report(seq uint64, v *Verdict, newSource bool) {
	if v.Syn {
		src := Uint32ToAddr(v.SynSource)
		telemetry.Detections.WithLabelValues(RuleSynFlood, "syn").Inc()
		e.logger.Debug().Uint64("frame", seq).Stringer("src", src).Bool("new_source", newSource).Msg("SYN-only segment")
		e.emit(Detection{Rule: RuleSynFlood, Kind: "syn", Seq: seq, Source: src, NewSource: newSource})
	}
	if v.ArpReply {
		telemetry.Detections.WithLabelValues(RuleArpReply, "reply").Inc()
		e.logger.Debug().Uint64("frame", seq).Msg("ARP reply")
		e.emit(Detection{Rule: RuleArpReply, Kind: "reply", Seq: seq})
	}
	for _, i := range v.Blacklist {
		domain := e.domains[i]
		telemetry.Detections.WithLabelValues(RuleBlacklist, domain).Inc()
		e.logger.Debug().Uint64("frame", seq).Str("domain", domain).Msg("blacklisted domain requested")
		e.emit(Detection{Rule: RuleBlacklist, Kind: "violation", Seq: seq, Domain: domain})
	}
}

func (e *Engine) emit(d Detection) {
	if e.observe != nil {
		e.observe(d)
	}
}
