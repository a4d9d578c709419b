package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/mdouchement/blobpress/internal/objectstore"
	"github.com/mdouchement/logger"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const script = "function hello() { return 'hello world'; }\n"

func setup(t *testing.T) (*objectstore.Memory, *Runner, *Collector) {
	t.Helper()

	log := logrus.New()
	log.SetOutput(io.Discard)

	store := objectstore.NewMemory()
	collector := &Collector{}
	runner := New(Controller{
		Logger:   logger.WrapLogrus(log),
		Store:    store,
		Reporter: collector,
		Workers:  4,
		Compression: CompressionOptions{
			Level:  gzip.DefaultCompression,
			Verify: true,
		},
	})
	return store, runner, collector
}

func site(store *objectstore.Memory) {
	store.Put("site", "a.js", []byte(strings.Repeat(script, 20)), objectstore.Properties{ContentType: "application/javascript"})
	store.Put("site", "b.png", []byte("\x89PNG"), objectstore.Properties{ContentType: "image/png"})
}

func writes(store *objectstore.Memory) int {
	var n int
	for _, call := range store.Calls() {
		if call.Op == objectstore.OpWriteBody || call.Op == objectstore.OpSetProperties {
			n++
		}
	}
	return n
}

func TestCompressionInPlace(t *testing.T) {
	store, runner, _ := setup(t)
	site(store)
	ctx := context.Background()

	report, err := runner.CompressionPass(ctx, "site", Scope{Extensions: []string{".js"}, InPlace: true}, Policy{MaxAge: 3600}, Mode{})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Processed)
	assert.Equal(t, 1, report.OutOfScope)
	assert.Equal(t, 0, report.Failed)
	assert.Equal(t, KindCompression, report.Kind)
	assert.NotEmpty(t, report.ID)

	a, err := store.Stat(ctx, "site", "a.js")
	require.NoError(t, err)
	assert.Equal(t, "gzip", a.ContentEncoding)
	assert.Equal(t, "public, max-age=3600", a.CacheControl)
	assert.Equal(t, "application/javascript", a.ContentType)
	assert.Empty(t, a.Meta(MetaPendingEncoding))

	payload, _ := store.Body("site", "a.js")
	body, err := Decompress(payload)
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat(script, 20), string(body))

	b, err := store.Stat(ctx, "site", "b.png")
	require.NoError(t, err)
	assert.Empty(t, b.ContentEncoding)
	assert.Empty(t, b.CacheControl)

	for _, call := range store.Calls() {
		assert.NotEqual(t, "b.png", call.Name)
	}
}

func TestCompressionInPlaceIsIdempotent(t *testing.T) {
	store, runner, _ := setup(t)
	site(store)
	ctx := context.Background()
	scope := Scope{Extensions: []string{".js"}, InPlace: true}

	_, err := runner.CompressionPass(ctx, "site", scope, Policy{MaxAge: 3600}, Mode{})
	require.NoError(t, err)
	n := len(store.Calls())

	report, err := runner.CompressionPass(ctx, "site", scope, Policy{MaxAge: 3600}, Mode{})
	require.NoError(t, err)
	assert.Equal(t, 0, report.Processed)
	assert.Equal(t, 1, report.AlreadyDone)
	assert.Len(t, store.Calls(), n)
}

func TestCompressionGzipEncodingIsCaseInsensitive(t *testing.T) {
	store, runner, _ := setup(t)
	store.Put("site", "a.js", []byte("x"), objectstore.Properties{ContentType: "application/javascript", ContentEncoding: "GZIP"})

	report, err := runner.CompressionPass(context.Background(), "site", Scope{Extensions: []string{"js"}, InPlace: true}, Policy{}, Mode{})
	require.NoError(t, err)
	assert.Equal(t, 1, report.AlreadyDone)
	assert.Equal(t, 0, writes(store))
}

func TestCompressionShallowListing(t *testing.T) {
	store, runner, _ := setup(t)
	store.ShallowListing = true
	store.Put("site", "done.js", []byte("x"), objectstore.Properties{ContentEncoding: "gzip"})
	store.Put("site", "todo.js", []byte("y"), objectstore.Properties{})

	report, err := runner.CompressionPass(context.Background(), "site", Scope{Extensions: []string{".js"}, InPlace: true}, Policy{}, Mode{})
	require.NoError(t, err)
	assert.Equal(t, 1, report.AlreadyDone)
	assert.Equal(t, 1, report.Processed)
}

func TestCompressionLeavesEncodedObjects(t *testing.T) {
	store, runner, collector := setup(t)
	ctx := context.Background()
	store.Put("site", "br.js", []byte("BROTLI-BYTES"), objectstore.Properties{ContentType: "application/javascript", ContentEncoding: "br"})
	store.Put("site", "plain.js", []byte(script), objectstore.Properties{ContentType: "application/javascript", ContentEncoding: "identity"})

	report, err := runner.CompressionPass(ctx, "site", Scope{Extensions: []string{".js"}, InPlace: true}, Policy{}, Mode{})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Encoded)
	assert.Equal(t, 1, report.Processed)
	assert.Equal(t, 2, report.Total())

	br, err := store.Stat(ctx, "site", "br.js")
	require.NoError(t, err)
	assert.Equal(t, "br", br.ContentEncoding)
	body, _ := store.Body("site", "br.js")
	assert.Equal(t, "BROTLI-BYTES", string(body))

	for _, call := range store.Calls() {
		assert.Equal(t, "plain.js", call.Name)
	}
	for _, e := range collector.Events() {
		if e.Outcome == OutcomeEncoded {
			assert.Equal(t, "site/br.js", e.Path)
			assert.Equal(t, "br", e.Encoding)
		}
	}
}

func TestCompressionSiblingOfEncodedSource(t *testing.T) {
	store, runner, _ := setup(t)
	store.ShallowListing = true
	ctx := context.Background()

	payload, err := Compress([]byte(script), gzip.BestSpeed)
	require.NoError(t, err)
	store.Put("site", "g.js", payload, objectstore.Properties{ContentEncoding: "gzip"})

	report, err := runner.CompressionPass(ctx, "site", Scope{Extensions: []string{".js"}, Suffix: ".gz"}, Policy{}, Mode{})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Encoded)
	assert.Equal(t, 0, report.Processed)
	assert.Equal(t, 0, writes(store))

	exists, err := store.Exists(ctx, "site", "g.js.gz")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestCompressionSibling(t *testing.T) {
	store, runner, _ := setup(t)
	site(store)
	ctx := context.Background()
	scope := Scope{Extensions: []string{".js"}, Suffix: ".gz"}

	report, err := runner.CompressionPass(ctx, "site", scope, Policy{MaxAge: 3600}, Mode{})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Processed)

	original, err := store.Stat(ctx, "site", "a.js")
	require.NoError(t, err)
	assert.Empty(t, original.ContentEncoding)
	assert.Empty(t, original.CacheControl)
	body, _ := store.Body("site", "a.js")
	assert.Equal(t, strings.Repeat(script, 20), string(body))

	sibling, err := store.Stat(ctx, "site", "a.js.gz")
	require.NoError(t, err)
	assert.Equal(t, "gzip", sibling.ContentEncoding)
	assert.Equal(t, "application/javascript", sibling.ContentType)
	assert.Equal(t, "public, max-age=3600", sibling.CacheControl)
	assert.Equal(t, original.Hash, sibling.Meta(MetaSourceEtag))

	payload, _ := store.Body("site", "a.js.gz")
	body, err = Decompress(payload)
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat(script, 20), string(body))

	//

	n := len(store.Calls())
	report, err = runner.CompressionPass(ctx, "site", scope, Policy{MaxAge: 3600}, Mode{})
	require.NoError(t, err)
	assert.Equal(t, 0, report.Processed)
	assert.Equal(t, 1, report.AlreadyDone)
	assert.Len(t, store.Calls(), n)
}

func TestCompressionSiblingIsNeverASource(t *testing.T) {
	store, runner, _ := setup(t)
	store.Put("site", "a.js", []byte("x"), objectstore.Properties{})
	store.Put("site", "a.js.gz", []byte("y"), objectstore.Properties{ContentEncoding: "gzip"})

	report, err := runner.CompressionPass(context.Background(), "site", Scope{Extensions: []string{".js", ".gz"}, Suffix: ".gz"}, Policy{}, Mode{})
	require.NoError(t, err)
	assert.Equal(t, 1, report.AlreadyDone)
	assert.Equal(t, 1, report.OutOfScope)

	exists, err := store.Exists(context.Background(), "site", "a.js.gz.gz")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestCompressionStaleSibling(t *testing.T) {
	store, runner, _ := setup(t)
	ctx := context.Background()
	store.Put("site", "a.js", []byte("new content"), objectstore.Properties{})
	store.Put("site", "a.js.gz", []byte("old"), objectstore.Properties{ContentEncoding: "gzip", Metadata: map[string]string{MetaSourceEtag: "outdated"}})
	scope := Scope{Extensions: []string{".js"}, Suffix: ".gz"}

	report, err := runner.CompressionPass(ctx, "site", scope, Policy{}, Mode{})
	require.NoError(t, err)
	assert.Equal(t, 1, report.AlreadyDone, "existence is enough by default")

	runner.compression.RefreshStale = true
	report, err = runner.CompressionPass(ctx, "site", scope, Policy{}, Mode{})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Processed)

	payload, _ := store.Body("site", "a.js.gz")
	body, err := Decompress(payload)
	require.NoError(t, err)
	assert.Equal(t, "new content", string(body))
}

func TestCompressionInterruptedSiblingIsRebuilt(t *testing.T) {
	store, runner, _ := setup(t)
	store.Put("site", "a.js", []byte("content"), objectstore.Properties{})
	store.Put("site", "a.js.gz", []byte("partial"), objectstore.Properties{Metadata: map[string]string{MetaPendingEncoding: "gzip"}})

	report, err := runner.CompressionPass(context.Background(), "site", Scope{Extensions: []string{".js"}, Suffix: ".gz"}, Policy{}, Mode{})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Processed)

	sibling, err := store.Stat(context.Background(), "site", "a.js.gz")
	require.NoError(t, err)
	assert.Equal(t, "gzip", sibling.ContentEncoding)
	assert.Empty(t, sibling.Meta(MetaPendingEncoding))
}

func TestCompressionInterruptedInPlaceIsResumed(t *testing.T) {
	store, runner, collector := setup(t)
	ctx := context.Background()

	payload, err := Compress([]byte("content"), gzip.BestSpeed)
	require.NoError(t, err)
	store.Put("site", "a.js", payload, objectstore.Properties{ContentType: "application/javascript", Metadata: map[string]string{MetaPendingEncoding: "gzip"}})

	report, err := runner.CompressionPass(ctx, "site", Scope{Extensions: []string{".js"}, InPlace: true}, Policy{MaxAge: 60}, Mode{})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Processed)

	for _, call := range store.Calls() {
		assert.NotEqual(t, objectstore.OpWriteBody, call.Op, "the compressed body must not be compressed twice")
	}

	a, err := store.Stat(ctx, "site", "a.js")
	require.NoError(t, err)
	assert.Equal(t, "gzip", a.ContentEncoding)
	assert.Equal(t, "public, max-age=60", a.CacheControl)
	assert.Empty(t, a.Meta(MetaPendingEncoding))

	stored, _ := store.Body("site", "a.js")
	body, err := Decompress(stored)
	require.NoError(t, err)
	assert.Equal(t, "content", string(body))

	events := collector.Events()
	require.Len(t, events, 1)
	assert.True(t, events[0].Resumed)
}

func TestCompressionSimulate(t *testing.T) {
	store, runner, collector := setup(t)
	site(store)

	for _, scope := range []Scope{
		{Extensions: []string{".js"}, InPlace: true},
		{Extensions: []string{".js"}, Suffix: ".gz"},
	} {
		report, err := runner.CompressionPass(context.Background(), "site", scope, Policy{MaxAge: 3600}, Mode{Simulate: true})
		require.NoError(t, err)
		assert.True(t, report.Simulate)
		assert.Equal(t, 1, report.Simulated)
		assert.Equal(t, 0, report.Processed)
		assert.Equal(t, 1, report.OutOfScope)
	}
	assert.Empty(t, store.Calls())

	for _, e := range collector.Events() {
		if e.Outcome == OutcomeSimulated {
			assert.Equal(t, int64(len(strings.Repeat(script, 20))), e.BytesIn)
			assert.NotZero(t, e.BytesOut)
		}
	}
}

func TestCacheControlSubpath(t *testing.T) {
	store, runner, _ := setup(t)
	ctx := context.Background()
	store.Put("c", "assets/x.css", []byte("a{}"), objectstore.Properties{ContentType: "text/css", ContentEncoding: "gzip"})
	store.Put("c", "y.css", []byte("b{}"), objectstore.Properties{ContentType: "text/css"})
	store.Put("c", "assets/z.js", []byte("c"), objectstore.Properties{ContentType: "application/javascript"})

	report, err := runner.CacheControlPass(ctx, "c", Scope{Extensions: []string{".CSS"}, Subpath: "assets"}, Policy{MaxAge: 600}, Mode{})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Processed)
	assert.Equal(t, 2, report.OutOfScope)
	assert.Equal(t, KindCacheControl, report.Kind)

	x, err := store.Stat(ctx, "c", "assets/x.css")
	require.NoError(t, err)
	assert.Equal(t, "public, max-age=600", x.CacheControl)
	assert.Equal(t, "gzip", x.ContentEncoding, "other properties are kept")
	assert.Equal(t, "text/css", x.ContentType)

	y, err := store.Stat(ctx, "c", "y.css")
	require.NoError(t, err)
	assert.Empty(t, y.CacheControl)

	calls := store.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, objectstore.Call{Op: objectstore.OpSetProperties, Container: "c", Name: "assets/x.css"}, calls[0])
}

func TestCacheControlRestampsAndSimulates(t *testing.T) {
	store, runner, _ := setup(t)
	store.Put("c", "x.css", []byte("a{}"), objectstore.Properties{CacheControl: "public, max-age=600"})
	scope := Scope{Extensions: []string{".css"}}

	report, err := runner.CacheControlPass(context.Background(), "c", scope, Policy{MaxAge: 600}, Mode{Simulate: true})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Simulated)
	assert.Empty(t, store.Calls())

	report, err = runner.CacheControlPass(context.Background(), "c", scope, Policy{MaxAge: 600}, Mode{})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Processed)
	assert.Len(t, store.Calls(), 1)
}

func TestOutOfScopeObjectsAreNeverWritten(t *testing.T) {
	for _, simulate := range []bool{false, true} {
		store, runner, _ := setup(t)
		store.Put("c", "assetsx/a.js", []byte("a"), objectstore.Properties{})
		store.Put("c", "a.js", []byte("a"), objectstore.Properties{})
		store.Put("c", "assets/b.txt", []byte("b"), objectstore.Properties{})
		store.Put("c", "assets/README", []byte("c"), objectstore.Properties{})
		scope := Scope{Extensions: []string{".js"}, Subpath: "assets", InPlace: true}

		report, err := runner.CompressionPass(context.Background(), "c", scope, Policy{}, Mode{Simulate: simulate})
		require.NoError(t, err)
		assert.Equal(t, 4, report.OutOfScope)

		report, err = runner.CacheControlPass(context.Background(), "c", scope, Policy{}, Mode{Simulate: simulate})
		require.NoError(t, err)
		assert.Equal(t, 4, report.OutOfScope)

		assert.Empty(t, store.Calls())
	}
}

func TestRetryPaths(t *testing.T) {
	store, runner, _ := setup(t)
	store.Put("c", "a.css", []byte("a"), objectstore.Properties{})
	store.Put("c", "b.css", []byte("b"), objectstore.Properties{})

	report, err := runner.CacheControlPass(context.Background(), "c", Scope{Extensions: []string{".css"}, Paths: []string{"b.css"}}, Policy{}, Mode{})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Processed)
	assert.Equal(t, 1, report.OutOfScope)
	assert.Equal(t, []objectstore.Call{{Op: objectstore.OpSetProperties, Container: "c", Name: "b.css"}}, store.Calls())
}

func TestWriteFailureIsIsolated(t *testing.T) {
	store, runner, _ := setup(t)
	ctx := context.Background()
	for i := 0; i < 10; i++ {
		store.Put("c", fmt.Sprintf("f%02d.js", i), []byte(script), objectstore.Properties{})
	}
	store.Fail(objectstore.OpWriteBody, "c", "f03.js", errors.New("disk full"))

	report, err := runner.CompressionPass(ctx, "c", Scope{Extensions: []string{".js"}, InPlace: true}, Policy{}, Mode{})
	require.NoError(t, err)
	assert.Equal(t, 9, report.Processed)
	assert.Equal(t, 1, report.Failed)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, "c/f03.js", report.Failures[0].Path)
	assert.Equal(t, "f03.js", report.Failures[0].Name)
	assert.Equal(t, StageWrite, report.Failures[0].Stage)
	assert.False(t, report.Failures[0].Inconsistent)
	assert.Contains(t, report.Failures[0].Error, "disk full")
	assert.Equal(t, []string{"f03.js"}, report.FailedNames())

	f03, err := store.Stat(ctx, "c", "f03.js")
	require.NoError(t, err)
	assert.Empty(t, f03.ContentEncoding)
	body, _ := store.Body("c", "f03.js")
	assert.Equal(t, script, string(body))
}

func TestPropertiesFailureIsInconsistent(t *testing.T) {
	store, runner, collector := setup(t)
	store.Put("c", "a.js", []byte(script), objectstore.Properties{})
	store.Fail(objectstore.OpSetProperties, "c", "a.js", errors.New("timeout"))

	report, err := runner.CompressionPass(context.Background(), "c", Scope{Extensions: []string{".js"}, InPlace: true}, Policy{}, Mode{})
	require.NoError(t, err)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, StageProperties, report.Failures[0].Stage)
	assert.True(t, report.Failures[0].Inconsistent)

	events := collector.Events()
	require.Len(t, events, 1)
	assert.True(t, events[0].Err.IsWrite())
	assert.Contains(t, events[0].Err.Error(), "body written, properties not updated")

	// The marker left by the interrupted commit lets the next run finish it.
	a, err := store.Stat(context.Background(), "c", "a.js")
	require.NoError(t, err)
	assert.Equal(t, "gzip", a.Meta(MetaPendingEncoding))

	store.Fail(objectstore.OpSetProperties, "c", "a.js", nil)
	report, err = runner.CompressionPass(context.Background(), "c", Scope{Extensions: []string{".js"}, InPlace: true}, Policy{}, Mode{})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Processed)

	payload, _ := store.Body("c", "a.js")
	body, err := Decompress(payload)
	require.NoError(t, err)
	assert.Equal(t, script, string(body))
}

func TestReadAndProbeFailures(t *testing.T) {
	store, runner, collector := setup(t)
	store.Put("c", "a.js", []byte(script), objectstore.Properties{})
	store.Put("c", "b.js", []byte(script), objectstore.Properties{})
	store.Fail(objectstore.OpRead, "c", "a.js", errors.New("io error"))
	store.Fail(objectstore.OpStat, "c", "b.js.gz", errors.New("unreachable"))

	report, err := runner.CompressionPass(context.Background(), "c", Scope{Extensions: []string{".js"}, Suffix: ".gz"}, Policy{}, Mode{})
	require.NoError(t, err)
	assert.Equal(t, 2, report.Failed)

	for _, e := range collector.Events() {
		require.NotNil(t, e.Err)
		switch e.Path {
		case "c/a.js":
			assert.True(t, e.Err.IsRead())
		case "c/b.js":
			assert.True(t, e.Err.IsProbe())
		}
	}
}

func TestEnumerationError(t *testing.T) {
	store, runner, _ := setup(t)
	store.Fail(objectstore.OpList, "c", "", errors.New("forbidden"))

	report, err := runner.CacheControlPass(context.Background(), "c", Scope{Extensions: []string{".css"}}, Policy{}, Mode{})
	require.Error(t, err)
	assert.True(t, IsEnumerationError(err))
	assert.NotNil(t, report)
	assert.Equal(t, 0, report.Total())
}

func TestConfigErrors(t *testing.T) {
	store, runner, _ := setup(t)
	site(store)
	ctx := context.Background()

	_, err := runner.CompressionPass(ctx, "site", Scope{InPlace: true}, Policy{}, Mode{})
	assert.True(t, IsConfigError(err), "no extension")

	_, err = runner.CompressionPass(ctx, "site", Scope{Extensions: []string{".js"}}, Policy{}, Mode{})
	assert.True(t, IsConfigError(err), "sibling mode without suffix")

	_, err = runner.CacheControlPass(ctx, "site", Scope{Extensions: []string{".js"}}, Policy{MaxAge: -1}, Mode{})
	assert.True(t, IsConfigError(err), "negative max-age")
	assert.Contains(t, err.Error(), "max-age must not be negative, got -1")

	_, err = runner.CacheControlPass(ctx, "", Scope{Extensions: []string{".js"}}, Policy{}, Mode{})
	assert.True(t, IsConfigError(err), "no container")

	runner.compression.Level = 42
	_, err = runner.CompressionPass(ctx, "site", Scope{Extensions: []string{".js"}, InPlace: true}, Policy{}, Mode{})
	assert.True(t, IsConfigError(err), "compression level")

	assert.Empty(t, store.Calls())
}

func TestCancellationStopsDispatching(t *testing.T) {
	store, runner, _ := setup(t)
	for i := 0; i < 100; i++ {
		store.Put("c", fmt.Sprintf("f%03d.css", i), []byte("a"), objectstore.Properties{})
	}

	ctx, cancel := context.WithCancel(context.Background())
	var n int
	runner.reporter = ReporterFunc(func(e Event) {
		n++ // Reporter calls are concurrent but a single worker is used below.
		if n == 10 {
			cancel()
		}
	})
	runner.workers = 1

	report, err := runner.CacheControlPass(ctx, "c", Scope{Extensions: []string{".css"}}, Policy{}, Mode{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.True(t, report.Canceled)
	assert.Less(t, report.Total(), 100)
	assert.GreaterOrEqual(t, report.Total(), 10)
}

func TestNoWorkerStartsAfterCancellation(t *testing.T) {
	store, runner, _ := setup(t)
	for i := 0; i < 3; i++ {
		store.Put("c", fmt.Sprintf("f%d.css", i), []byte("a"), objectstore.Properties{})
	}

	ctx, cancel := context.WithCancel(context.Background())
	runner.reporter = ReporterFunc(func(e Event) {
		cancel()
	})
	runner.workers = 1

	report, err := runner.CacheControlPass(ctx, "c", Scope{Extensions: []string{".css"}}, Policy{}, Mode{})
	require.Error(t, err)
	assert.True(t, report.Canceled)
	assert.Equal(t, 1, report.Total())
	assert.Equal(t, 1, report.Processed)
	assert.Empty(t, report.Failures)
	assert.Equal(t, 1, writes(store))
}

func TestPolicy(t *testing.T) {
	assert.Equal(t, "public, max-age=0", Policy{}.CacheControl())
	assert.Equal(t, "public, max-age=31536000", Policy{MaxAge: 31536000}.CacheControl())
}

func TestRoundTrip(t *testing.T) {
	bodies := [][]byte{
		{},
		[]byte("a"),
		[]byte(strings.Repeat(script, 1000)),
		bytes.Repeat([]byte{0x00, 0xff, 0x7f}, 4096),
	}

	for _, level := range []int{gzip.DefaultCompression, gzip.BestSpeed, gzip.BestCompression, gzip.NoCompression} {
		for _, body := range bodies {
			payload, err := Compress(body, level)
			require.NoError(t, err)

			original, err := Decompress(payload)
			require.NoError(t, err)
			assert.True(t, bytes.Equal(body, original), "level %d, %d bytes", level, len(body))
		}
	}
}

func TestSetWildcardReadCORS(t *testing.T) {
	store := objectstore.NewMemory()
	store.Put("a", "x", nil, objectstore.Properties{})
	store.Put("b", "y", nil, objectstore.Properties{})
	ctx := context.Background()

	require.NoError(t, store.SetCORS(ctx, "a", []objectstore.CORSRule{
		{AllowedOrigins: []string{"https://example.com"}, AllowedMethods: []string{"PUT"}},
		{AllowedOrigins: []string{"https://example.org"}, AllowedMethods: []string{"DELETE"}},
	}))

	containers, err := SetWildcardReadCORS(ctx, store)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, containers)

	for _, container := range containers {
		assert.Equal(t, []objectstore.CORSRule{WildcardReadRule}, store.CORS(container))
	}

	containers, err = SetWildcardReadCORS(ctx, store, "b")
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, containers)
}
