package pipeline

import (
	"context"

	"github.com/mdouchement/blobpress/internal/objectstore"
)

// cacheControl stamps the Cache-Control header. It has no skip test: stamping twice the same value is harmless.
type cacheControl struct {
	store  objectstore.Store
	scope  *matcher
	policy Policy
	mode   Mode
}

func (p *cacheControl) kind() Kind {
	return KindCacheControl
}

func (p *cacheControl) process(ctx context.Context, o objectstore.Object) Event {
	e := Event{
		Pipeline: KindCacheControl,
		Path:     o.Path(),
		Target:   o.Name,
	}

	if !p.scope.InScope(&o) {
		e.Outcome = OutcomeOutOfScope
		return e
	}

	if p.mode.Simulate {
		e.Outcome = OutcomeSimulated
		return e
	}

	err := p.store.SetProperties(ctx, o.Container, o.Name, objectstore.Properties{
		CacheControl: p.policy.CacheControl(),
	})
	if err != nil {
		return failed(e, StageProperties, false, err)
	}

	e.Outcome = OutcomeProcessed
	return e
}
