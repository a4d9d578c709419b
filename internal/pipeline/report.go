package pipeline

import (
	"os"
	"sync"
	"time"

	"github.com/gofrs/uuid"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// A Report summarizes a pass.
type Report struct {
	ID         string    `yaml:"id"`
	Kind       Kind      `yaml:"kind"`
	Container  string    `yaml:"container"`
	Simulate   bool      `yaml:"simulate"`
	StartedAt  time.Time `yaml:"started_at"`
	FinishedAt time.Time `yaml:"finished_at"`

	Processed   int  `yaml:"processed"`
	OutOfScope  int  `yaml:"out_of_scope"`
	AlreadyDone int  `yaml:"already_done"`
	Encoded     int  `yaml:"encoded"`
	Failed      int  `yaml:"failed"`
	Simulated   int  `yaml:"simulated"`
	Canceled    bool `yaml:"canceled"`

	Failures []Failure `yaml:"failures,omitempty"`

	mu sync.Mutex
}

// A Failure describes the failure of one object.
type Failure struct {
	Path         string `yaml:"path"`
	Name         string `yaml:"name"`
	Stage        Stage  `yaml:"stage"`
	Inconsistent bool   `yaml:"inconsistent,omitempty"`
	Error        string `yaml:"error"`
}

func newReport(kind Kind, container string, mode Mode) *Report {
	return &Report{
		ID:        uuid.Must(uuid.NewV4()).String(),
		Kind:      kind,
		Container: container,
		Simulate:  mode.Simulate,
		StartedAt: time.Now().UTC(),
	}
}

func (r *Report) record(name string, e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch e.Outcome {
	case OutcomeOutOfScope:
		r.OutOfScope++
	case OutcomeAlreadyDone:
		r.AlreadyDone++
	case OutcomeEncoded:
		r.Encoded++
	case OutcomeProcessed:
		r.Processed++
	case OutcomeSimulated:
		r.Simulated++
	case OutcomeFailed:
		r.Failed++
		r.Failures = append(r.Failures, Failure{
			Path:         e.Path,
			Name:         name,
			Stage:        e.Err.Stage,
			Inconsistent: e.Err.Inconsistent,
			Error:        e.Err.Err.Error(),
		})
	}
}

func (r *Report) finish() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.FinishedAt = time.Now().UTC()
}

// Total returns the number of classified objects.
func (r *Report) Total() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.Processed + r.OutOfScope + r.AlreadyDone + r.Encoded + r.Failed + r.Simulated
}

// FailedNames returns the names of the failed objects.
func (r *Report) FailedNames() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.Failures))
	for _, f := range r.Failures {
		names = append(names, f.Name)
	}
	return names
}

// WriteFile writes the report in YAML to the given file.
func (r *Report) WriteFile(filename string) error {
	r.mu.Lock()
	payload, err := yaml.Marshal(r)
	r.mu.Unlock()
	if err != nil {
		return errors.Wrap(err, "could not marshal report")
	}

	err = os.WriteFile(filename, payload, 0o644)
	return errors.Wrap(err, "could not write report")
}

// ReadReport reads a report written by WriteFile.
func ReadReport(filename string) (*Report, error) {
	payload, err := os.ReadFile(filename)
	if err != nil {
		return nil, errors.Wrap(err, "could not read report")
	}

	var r Report
	err = yaml.Unmarshal(payload, &r)
	return &r, errors.Wrap(err, "could not unmarshal report")
}
