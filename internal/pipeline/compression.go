package pipeline

import (
	"bytes"
	"context"
	"strings"

	"github.com/mdouchement/blobpress/internal/objectstore"
	"github.com/pkg/errors"
)

// Metadata keys written on compressed objects.
const (
	// MetaPendingEncoding marks a target whose body is written but whose properties are not yet committed.
	MetaPendingEncoding = "pending-encoding"
	// MetaSourceEtag records on a sibling the ETag of the object it was compressed from.
	MetaSourceEtag = "source-etag"
)

// CompressionOptions tunes the compression pass.
type CompressionOptions struct {
	// Level is the gzip compression level.
	Level int
	// Verify decompresses the payload and compares it to the original body before committing.
	Verify bool
	// RefreshStale rebuilds the siblings whose recorded source ETag differs from the source one.
	RefreshStale bool
}

type compression struct {
	store   objectstore.Store
	scope   *matcher
	policy  Policy
	mode    Mode
	options CompressionOptions
}

func (p *compression) kind() Kind {
	return KindCompression
}

func (p *compression) process(ctx context.Context, o objectstore.Object) Event {
	e := Event{
		Pipeline: KindCompression,
		Path:     o.Path(),
	}

	if !p.scope.InScope(&o) || p.scope.IsSibling(&o) {
		e.Outcome = OutcomeOutOfScope
		return e
	}
	e.Target = p.scope.Target(&o)

	//

	state, err := p.state(ctx, &o)
	if err != nil {
		return failed(e, StageProbe, false, err)
	}
	switch state {
	case stateDone:
		e.Outcome = OutcomeAlreadyDone
		return e
	case stateEncoded:
		e.Outcome = OutcomeEncoded
		e.Encoding = o.ContentEncoding
		return e
	case stateResume:
		return p.resume(ctx, e, &o)
	}

	//

	body, err := p.store.Read(ctx, o.Container, o.Name)
	if err != nil {
		return failed(e, StageRead, false, err)
	}

	payload, err := Compress(body, p.options.Level)
	if err != nil {
		return failed(e, StageCompress, false, err)
	}
	e.BytesIn = int64(len(body))
	e.BytesOut = int64(len(payload))

	if p.options.Verify {
		original, err := Decompress(payload)
		if err != nil {
			return failed(e, StageCompress, false, err)
		}
		if !bytes.Equal(original, body) {
			return failed(e, StageCompress, false, errors.New("round trip mismatch"))
		}
	}

	if p.mode.Simulate {
		e.Outcome = OutcomeSimulated
		return e
	}

	//

	// Once the transform succeeded the commit is not interrupted by a cancellation,
	// the two writes must not be split.
	ctx = context.WithoutCancel(ctx)

	err = p.store.WriteBody(ctx, o.Container, e.Target, payload, objectstore.Properties{
		ContentType: o.ContentType,
		Metadata: map[string]string{
			MetaPendingEncoding: EncodingGzip,
		},
	})
	if err != nil {
		return failed(e, StageWrite, false, err)
	}

	err = p.store.SetProperties(ctx, o.Container, e.Target, p.properties(&o))
	if err != nil {
		return failed(e, StageProperties, true, err)
	}

	e.Outcome = OutcomeProcessed
	return e
}

type targetState int

const (
	statePending targetState = iota
	stateDone
	// stateResume is an in place target whose body is written but whose properties are not.
	stateResume
	// stateEncoded is a source already carrying a content encoding, it can not be gzipped once more.
	stateEncoded
)

// state probes the source and its target to tell what remains to be done.
func (p *compression) state(ctx context.Context, o *objectstore.Object) (targetState, error) {
	if p.scope.inPlace {
		if err := p.detail(ctx, o); err != nil {
			return stateDone, err
		}

		switch {
		case strings.EqualFold(o.ContentEncoding, EncodingGzip):
			return stateDone, nil
		case !identity(o.ContentEncoding):
			return stateEncoded, nil
		case strings.EqualFold(o.Meta(MetaPendingEncoding), EncodingGzip):
			return stateResume, nil
		}
		return statePending, nil
	}

	done, err := p.siblingDone(ctx, o)
	if err != nil || done {
		return stateDone, err
	}

	if err = p.detail(ctx, o); err != nil {
		return stateDone, err
	}
	if !identity(o.ContentEncoding) {
		return stateEncoded, nil
	}
	return statePending, nil
}

func (p *compression) siblingDone(ctx context.Context, o *objectstore.Object) (bool, error) {
	sibling, err := p.store.Stat(ctx, o.Container, p.scope.Target(o))
	if objectstore.IsNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if sibling.Meta(MetaPendingEncoding) != "" {
		// Interrupted commit, the sibling is rebuilt from its source.
		return false, nil
	}
	if p.options.RefreshStale && o.Hash != "" && !strings.EqualFold(sibling.Meta(MetaSourceEtag), o.Hash) {
		return false, nil
	}
	return true, nil
}

// detail fills the properties a listing does not carry.
func (p *compression) detail(ctx context.Context, o *objectstore.Object) error {
	if o.Detailed {
		return nil
	}

	detailed, err := p.store.Stat(ctx, o.Container, o.Name)
	if err != nil {
		return err
	}
	*o = *detailed
	return nil
}

func (p *compression) resume(ctx context.Context, e Event, o *objectstore.Object) Event {
	e.Resumed = true
	if p.mode.Simulate {
		e.Outcome = OutcomeSimulated
		return e
	}

	err := p.store.SetProperties(context.WithoutCancel(ctx), o.Container, e.Target, p.properties(o))
	if err != nil {
		return failed(e, StageProperties, true, err)
	}

	e.Outcome = OutcomeProcessed
	return e
}

func (p *compression) properties(o *objectstore.Object) objectstore.Properties {
	props := objectstore.Properties{
		ContentType:     o.ContentType,
		ContentEncoding: EncodingGzip,
		CacheControl:    p.policy.CacheControl(),
		Metadata: map[string]string{
			MetaPendingEncoding: "",
		},
	}
	if !p.scope.inPlace && o.Hash != "" {
		props.Metadata[MetaSourceEtag] = o.Hash
	}
	return props
}

func identity(encoding string) bool {
	return encoding == "" || strings.EqualFold(encoding, "identity")
}

func failed(e Event, stage Stage, inconsistent bool, err error) Event {
	e.Outcome = OutcomeFailed
	e.Err = &ObjectError{
		Path:         e.Path,
		Stage:        stage,
		Inconsistent: inconsistent,
		Err:          err,
	}
	return e
}
