// Package scanner runs every registered detector against an endpoint.
//
// An Engine holds an ordered list of probe.Detector values. ScanURL runs
// them in registration order and concatenates their findings, so the
// output order is deterministic for a given endpoint and target behavior.
// A detector that cannot reach the target contributes nothing; the engine
// itself never fails.
package scanner

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/shadowprobe/shadowprobe/pkg/attackconfig"
	"github.com/shadowprobe/shadowprobe/pkg/cmdi"
	"github.com/shadowprobe/shadowprobe/pkg/cors"
	"github.com/shadowprobe/shadowprobe/pkg/finding"
	"github.com/shadowprobe/shadowprobe/pkg/lfi"
	"github.com/shadowprobe/shadowprobe/pkg/openredirect"
	"github.com/shadowprobe/shadowprobe/pkg/probe"
	"github.com/shadowprobe/shadowprobe/pkg/sqli"
	"github.com/shadowprobe/shadowprobe/pkg/ssrf"
	"github.com/shadowprobe/shadowprobe/pkg/ssti"
	"github.com/shadowprobe/shadowprobe/pkg/xss"
	"github.com/shadowprobe/shadowprobe/pkg/xxe"
)

const tracerName = "github.com/shadowprobe/shadowprobe/pkg/scanner"

// Engine manages detector registration and execution.
type Engine struct {
	detectors []probe.Detector
	tracer    trace.Tracer
}

// New creates an engine with the full built-in detector set sharing base:
// sqli, xss, ssrf, lfi, ssti, cmdi, xxe, cors, openredirect.
func New(base attackconfig.Base) *Engine {
	base.Validate()
	return NewWithDetectors(
		sqli.New(sqli.Config{Base: base}),
		xss.New(xss.Config{Base: base}),
		ssrf.New(ssrf.Config{Base: base}),
		lfi.New(lfi.Config{Base: base}),
		ssti.New(ssti.Config{Base: base}),
		cmdi.New(cmdi.Config{Base: base}),
		xxe.New(xxe.Config{Base: base}),
		cors.New(cors.Config{Base: base, SuffixOrigin: true}),
		openredirect.New(openredirect.Config{Base: base}),
	)
}

// NewWithDetectors creates an engine over the given detectors in order.
func NewWithDetectors(detectors ...probe.Detector) *Engine {
	e := &Engine{tracer: otel.Tracer(tracerName)}
	for _, d := range detectors {
		e.Register(d)
	}
	return e
}

// Register appends a detector. Detectors run in registration order.
// A nil detector is ignored.
func (e *Engine) Register(d probe.Detector) {
	if d == nil {
		return
	}
	e.detectors = append(e.detectors, d)
}

// Detectors returns the registered detectors in order.
func (e *Engine) Detectors() []probe.Detector {
	out := make([]probe.Detector, len(e.detectors))
	copy(out, e.detectors)
	return out
}

// Names returns detector display names in registration order.
func (e *Engine) Names() []string {
	out := make([]string, len(e.detectors))
	for i, d := range e.detectors {
		out[i] = d.Name()
	}
	return out
}

// Count returns the number of registered detectors.
func (e *Engine) Count() int {
	return len(e.detectors)
}

// Has reports whether a detector for class is registered.
func (e *Engine) Has(class finding.Class) bool {
	for _, d := range e.detectors {
		if d.Class() == class {
			return true
		}
	}
	return false
}

// Only returns an engine restricted to the given classes, keeping
// registration order. With no classes it returns e unchanged.
func (e *Engine) Only(classes ...finding.Class) *Engine {
	if len(classes) == 0 {
		return e
	}
	want := make(map[finding.Class]bool, len(classes))
	for _, c := range classes {
		want[c] = true
	}
	out := &Engine{tracer: e.tracer}
	for _, d := range e.detectors {
		if want[d.Class()] {
			out.detectors = append(out.detectors, d)
		}
	}
	return out
}

// ScanURL runs every detector against endpoint and concatenates their
// findings in registration order. Detectors are skipped once ctx is done.
func (e *Engine) ScanURL(ctx context.Context, endpoint string) []*finding.Vulnerability {
	var all []*finding.Vulnerability
	for _, d := range e.detectors {
		if ctx.Err() != nil {
			break
		}
		all = append(all, e.run(ctx, d, endpoint)...)
	}
	return all
}

func (e *Engine) run(ctx context.Context, d probe.Detector, endpoint string) []*finding.Vulnerability {
	ctx, span := e.tracer.Start(ctx, "scanner.detector",
		trace.WithAttributes(
			attribute.String("detector.name", d.Name()),
			attribute.String("detector.class", string(d.Class())),
			attribute.String("url.full", endpoint),
		))
	defer span.End()

	vulns := d.Scan(ctx, endpoint)
	span.SetAttributes(attribute.Int("detector.findings", len(vulns)))
	return vulns
}
