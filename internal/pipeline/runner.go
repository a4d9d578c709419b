// Package pipeline runs the maintenance passes over the objects of a container.
//
// A pass enumerates the container lazily and hands every object to a bounded pool of workers.
// Each worker filters, transforms and commits its object independently:
// the failure of one object is recorded in the Report and never stops the others.
package pipeline

import (
	"context"
	"io"
	"runtime"

	"github.com/mdouchement/blobpress/internal/objectstore"
	"github.com/mdouchement/logger"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// A Controller is an Inversion Of Control pattern used to init the pipeline package.
type Controller struct {
	Logger   logger.Logger
	Store    objectstore.Store
	Reporter Reporter
	// Workers is the number of objects processed concurrently, it defaults to the number of CPUs.
	Workers     int
	Compression CompressionOptions
}

// A Runner runs maintenance passes.
type Runner struct {
	log         logger.Logger
	store       objectstore.Store
	reporter    Reporter
	workers     int
	compression CompressionOptions
}

type pass interface {
	kind() Kind
	process(ctx context.Context, o objectstore.Object) Event
}

// New returns a new Runner.
func New(ctrl Controller) *Runner {
	workers := ctrl.Workers
	if workers == 0 {
		workers = runtime.NumCPU()
	}

	log := ctrl.Logger
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = logger.WrapLogrus(l)
	}

	return &Runner{
		log:         log,
		store:       ctrl.Store,
		reporter:    ctrl.Reporter,
		workers:     workers,
		compression: ctrl.Compression,
	}
}

// CompressionPass gzips the eligible objects of the container.
func (r *Runner) CompressionPass(ctx context.Context, container string, scope Scope, policy Policy, mode Mode) (*Report, error) {
	m, err := scope.compile(true)
	if err != nil {
		return nil, err
	}
	if err = policy.validate(); err != nil {
		return nil, err
	}
	if !ValidLevel(r.compression.Level) {
		return nil, configErrorf("invalid compression level %d", r.compression.Level)
	}

	return r.run(ctx, container, mode, &compression{
		store:   r.store,
		scope:   m,
		policy:  policy,
		mode:    mode,
		options: r.compression,
	})
}

// CacheControlPass stamps the Cache-Control header on the eligible objects of the container.
func (r *Runner) CacheControlPass(ctx context.Context, container string, scope Scope, policy Policy, mode Mode) (*Report, error) {
	m, err := scope.compile(false)
	if err != nil {
		return nil, err
	}
	if err = policy.validate(); err != nil {
		return nil, err
	}

	return r.run(ctx, container, mode, &cacheControl{
		store:  r.store,
		scope:  m,
		policy: policy,
		mode:   mode,
	})
}

func (r *Runner) run(ctx context.Context, container string, mode Mode, p pass) (*Report, error) {
	if r.workers < 1 {
		return nil, configErrorf("workers must be greater than 0, got %d", r.workers)
	}
	if container == "" {
		return nil, configErrorf("a container is required")
	}

	log := r.log.WithPrefix("[" + string(p.kind()) + "]")
	report := newReport(p.kind(), container, mode)
	log.Infof("Starting pass %s on %s (simulate: %t, workers: %d)", report.ID, container, mode.Simulate, r.workers)

	var g errgroup.Group
	g.SetLimit(r.workers)

	// Go blocks while all the workers are busy so the listing is consumed at the pace of the processing.
	err := r.store.Walk(ctx, container, "", func(o *objectstore.Object) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		object := *o
		g.Go(func() error {
			// Go may have waited for a free worker past the cancellation.
			if ctx.Err() != nil {
				return nil
			}

			e := p.process(ctx, object)
			report.record(object.Name, e)
			if r.reporter != nil {
				r.reporter.Report(e)
			}
			return nil
		})
		return nil
	})
	g.Wait() // Workers never return an error.
	report.finish()

	if ctx.Err() != nil {
		report.Canceled = true
		log.Infof("Pass %s canceled after %d objects", report.ID, report.Total())
		return report, errors.Wrap(ctx.Err(), "pass canceled")
	}
	if err != nil {
		return report, errors.WithStack(&EnumerationError{Container: container, Err: err})
	}

	log.Infof("Pass %s done: %d processed, %d simulated, %d already done, %d encoded, %d out of scope, %d failed",
		report.ID, report.Processed, report.Simulated, report.AlreadyDone, report.Encoded, report.OutOfScope, report.Failed)
	return report, nil
}
