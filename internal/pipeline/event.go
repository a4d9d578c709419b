package pipeline

import (
	"sync"

	"github.com/mdouchement/logger"
)

// A Kind identifies a pipeline.
type Kind string

// Pipelines.
const (
	KindCompression  Kind = "compression"
	KindCacheControl Kind = "cache_control"
)

// An Outcome is the classification of one object by a pass.
type Outcome string

// Outcomes.
const (
	OutcomeOutOfScope  Outcome = "out_of_scope"
	OutcomeAlreadyDone Outcome = "already_done"
	OutcomeProcessed   Outcome = "processed"
	OutcomeSimulated   Outcome = "simulated"
	OutcomeFailed      Outcome = "failed"

	// OutcomeEncoded is a source left untouched because it already has a content encoding.
	OutcomeEncoded Outcome = "encoded"
)

// An Event reports the outcome of one object.
type Event struct {
	Pipeline Kind
	Outcome  Outcome
	// Path is the `container/name' path of the source object.
	Path string
	// Target is the name of the written object, it differs from the source in sibling mode.
	Target string
	// Resumed is set when a previously interrupted commit has been completed.
	Resumed bool
	// Encoding is the content encoding of an OutcomeEncoded source.
	Encoding string
	BytesIn  int64
	BytesOut int64
	Err      *ObjectError
}

type (
	// A Reporter receives the events of a pass. It is called concurrently by the workers.
	Reporter interface {
		Report(e Event)
	}

	// ReporterFunc is a function Reporter.
	ReporterFunc func(e Event)
)

// Report calls f(e).
func (f ReporterFunc) Report(e Event) {
	f(e)
}

// Reporters fans out the events to all the given reporters.
func Reporters(reporters ...Reporter) Reporter {
	return ReporterFunc(func(e Event) {
		for _, r := range reporters {
			if r != nil {
				r.Report(e)
			}
		}
	})
}

// Collector is a Reporter that keeps all the events in memory.
type Collector struct {
	mu     sync.Mutex
	events []Event
}

// Report implements Reporter.
func (c *Collector) Report(e Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.events = append(c.events, e)
}

// Events returns the collected events.
func (c *Collector) Events() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()

	return append([]Event(nil), c.events...)
}

// NewLogReporter returns a Reporter writing the events to the logger.
func NewLogReporter(log logger.Logger) Reporter {
	return ReporterFunc(func(e Event) {
		switch e.Outcome {
		case OutcomeOutOfScope:
			log.Debugf("Skipped %s: out of scope", e.Path)
		case OutcomeAlreadyDone:
			log.Debugf("Skipped %s: already done", e.Path)
		case OutcomeEncoded:
			log.Infof("Skipped %s: already encoded with %s", e.Path, e.Encoding)
		case OutcomeSimulated:
			log.Infof("[simulate] Would process %s -> %s (%d -> %d bytes)", e.Path, e.Target, e.BytesIn, e.BytesOut)
		case OutcomeProcessed:
			if e.Resumed {
				log.Infof("Resumed %s", e.Path)
				return
			}
			log.Infof("Processed %s -> %s (%d -> %d bytes)", e.Path, e.Target, e.BytesIn, e.BytesOut)
		case OutcomeFailed:
			log.Error(e.Err)
		}
	})
}
