package objectstore

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

// Operations recorded and failed by the Memory store.
const (
	OpList          = "list"
	OpStat          = "stat"
	OpRead          = "read"
	OpWriteBody     = "write_body"
	OpSetProperties = "set_properties"
	OpSetCORS       = "set_cors"
)

// A Call is a recorded write performed on a Memory store.
type Call struct {
	Op        string
	Container string
	Name      string
}

type memobject struct {
	object Object
	body   []byte
}

// Memory is a goroutine-safe in-memory Store. It records every write and supports injected failures.
type Memory struct {
	// ShallowListing makes Walk yield objects the way a Swift listing does,
	// without encoding, cache-control nor metadata.
	ShallowListing bool

	mu       sync.Mutex
	objects  map[string]*memobject
	cors     map[string][]CORSRule
	calls    []Call
	failures map[string]error
}

// NewMemory returns a new empty Memory store.
func NewMemory() *Memory {
	return &Memory{
		objects:  map[string]*memobject{},
		cors:     map[string][]CORSRule{},
		failures: map[string]error{},
	}
}

var (
	_ Store          = (*Memory)(nil)
	_ CORSConfigurer = (*Memory)(nil)
)

// Put stores an object without recording a call.
func (m *Memory) Put(container, name string, body []byte, props Properties) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.put(container, name, body, props)
}

// Fail makes the given operation fail with err for `container/name'.
// A nil err removes the failure. OpList failures are keyed by container only.
func (m *Memory) Fail(op, container, name string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := failureKey(op, container, name)
	if err == nil {
		delete(m.failures, k)
		return
	}
	m.failures[k] = err
}

// Calls returns the recorded write calls.
func (m *Memory) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()

	calls := make([]Call, len(m.calls))
	copy(calls, m.calls)
	return calls
}

// Body returns the stored body of the object.
func (m *Memory) Body(container, name string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	o, ok := m.objects[key(container, name)]
	if !ok {
		return nil, false
	}
	return clone(o.body), true
}

// CORS returns the CORS rules of the container.
func (m *Memory) CORS(container string) []CORSRule {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.cors[container]
}

// Walk iterates over a snapshot of the names taken when the walk starts.
func (m *Memory) Walk(ctx context.Context, container, prefix string, fn WalkFunc) error {
	m.mu.Lock()
	if err := m.failures[failureKey(OpList, container, "")]; err != nil {
		m.mu.Unlock()
		return err
	}

	var names []string
	for _, o := range m.objects {
		if o.object.Container == container && strings.HasPrefix(o.object.Name, prefix) {
			names = append(names, o.object.Name)
		}
	}
	m.mu.Unlock()
	sort.Strings(names)

	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return err
		}

		o, ok := m.snapshot(container, name)
		if !ok {
			continue
		}

		if err := fn(o); err != nil {
			return err
		}
	}
	return nil
}

func (m *Memory) Stat(ctx context.Context, container, name string) (*Object, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.failure(OpStat, container, name); err != nil {
		return nil, err
	}

	o, ok := m.objects[key(container, name)]
	if !ok {
		return nil, ErrNotFound
	}

	object := o.object
	object.Metadata = metadata(o.object.Metadata)
	return &object, nil
}

func (m *Memory) snapshot(container, name string) (*Object, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	o, ok := m.objects[key(container, name)]
	if !ok {
		return nil, false
	}

	object := o.object
	object.Metadata = metadata(o.object.Metadata)
	if m.ShallowListing {
		object.ContentEncoding = ""
		object.CacheControl = ""
		object.Metadata = nil
		object.Detailed = false
	}
	return &object, true
}

func (m *Memory) Exists(ctx context.Context, container, name string) (bool, error) {
	_, err := m.Stat(ctx, container, name)
	if IsNotFound(err) {
		return false, nil
	}
	return err == nil, err
}

func (m *Memory) Read(ctx context.Context, container, name string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.failure(OpRead, container, name); err != nil {
		return nil, err
	}

	o, ok := m.objects[key(container, name)]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(o.body), nil
}

func (m *Memory) WriteBody(ctx context.Context, container, name string, body []byte, props Properties) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, Call{Op: OpWriteBody, Container: container, Name: name})
	if err := m.failure(OpWriteBody, container, name); err != nil {
		return err
	}

	m.put(container, name, clone(body), props)
	return nil
}

func (m *Memory) SetProperties(ctx context.Context, container, name string, props Properties) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, Call{Op: OpSetProperties, Container: container, Name: name})
	if err := m.failure(OpSetProperties, container, name); err != nil {
		return err
	}

	o, ok := m.objects[key(container, name)]
	if !ok {
		return ErrNotFound
	}
	o.object.merge(props)
	return nil
}

func (m *Memory) Containers(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	seen := map[string]bool{}
	var names []string
	for _, o := range m.objects {
		if !seen[o.object.Container] {
			seen[o.object.Container] = true
			names = append(names, o.object.Container)
		}
	}
	for container := range m.cors {
		if !seen[container] {
			seen[container] = true
			names = append(names, container)
		}
	}

	sort.Strings(names)
	return names, nil
}

func (m *Memory) SetCORS(ctx context.Context, container string, rules []CORSRule) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, Call{Op: OpSetCORS, Container: container})
	if err := m.failure(OpSetCORS, container, ""); err != nil {
		return err
	}

	m.cors[container] = append([]CORSRule(nil), rules...)
	return nil
}

func (m *Memory) put(container, name string, body []byte, props Properties) {
	h := md5.Sum(body)
	m.objects[key(container, name)] = &memobject{
		object: Object{
			Container:       container,
			Name:            name,
			ContentType:     props.ContentType,
			ContentEncoding: props.ContentEncoding,
			CacheControl:    props.CacheControl,
			Size:            int64(len(body)),
			Hash:            hex.EncodeToString(h[:]),
			Metadata:        metadata(props.Metadata),
			Detailed:        true,
		},
		body: body,
	}
}

func (m *Memory) failure(op, container, name string) error {
	if err := m.failures[failureKey(op, container, name)]; err != nil {
		return errors.Wrapf(err, "%s %s", op, key(container, name))
	}
	return nil
}

func key(container, name string) string {
	return container + "/" + name
}

func failureKey(op, container, name string) string {
	return op + ":" + key(container, name)
}

func clone(b []byte) []byte {
	return append([]byte{}, b...)
}
