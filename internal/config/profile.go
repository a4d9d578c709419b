// Package config loads the pass profiles and the Swift credentials.
package config

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/mdouchement/blobpress/internal/pipeline"
	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// Defaults applied to the omitted settings.
const (
	DefaultSuffix = ".gz"
	DefaultMaxAge = 3600
)

type (
	// A Profile is a set of passes sharing the same run settings.
	Profile struct {
		// Workers is the number of objects processed concurrently, zero means the number of CPUs.
		Workers  int  `yaml:"workers"`
		Simulate bool `yaml:"simulate"`
		// Level is the gzip level, gzip.DefaultCompression when omitted.
		Level        *int  `yaml:"level"`
		Verify       *bool `yaml:"verify"`
		RefreshStale bool  `yaml:"refresh_stale"`
		// PageSize is the number of objects requested per listing page.
		PageSize int    `yaml:"page_size"`
		Passes   []Pass `yaml:"passes"`
	}

	// A Pass is one maintenance pass over a container.
	Pass struct {
		Name       string        `yaml:"name"`
		Kind       pipeline.Kind `yaml:"kind"`
		Container  string        `yaml:"container"`
		Extensions []string      `yaml:"extensions"`
		Subpath    string        `yaml:"subpath"`
		InPlace    *bool         `yaml:"in_place"`
		Suffix     string        `yaml:"suffix"`
		MaxAge     *int          `yaml:"max_age"`
		Schedule   string        `yaml:"schedule"`
	}
)

// Load reads and validates the profile stored in the given file.
func Load(filename string) (*Profile, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, errors.Wrap(err, "could not open profile")
	}
	defer f.Close()

	profile, err := Decode(f)
	return profile, errors.Wrapf(err, "%s", filename)
}

// Decode reads and validates a YAML profile. Unknown fields are rejected.
func Decode(r io.Reader) (*Profile, error) {
	var profile Profile

	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&profile); err != nil && err != io.EOF {
		return nil, errors.WithStack(&pipeline.ConfigError{Message: err.Error()})
	}

	profile.defaults()
	return &profile, profile.Validate()
}

// Validate checks the profile and its passes.
func (p *Profile) Validate() error {
	if p.Workers < 0 {
		return configErrorf("workers must not be negative, got %d", p.Workers)
	}
	if !pipeline.ValidLevel(*p.Level) {
		return configErrorf("invalid compression level %d", *p.Level)
	}
	if len(p.Passes) == 0 {
		return configErrorf("no pass defined")
	}

	names := map[string]bool{}
	for i, pass := range p.Passes {
		if names[pass.Name] {
			return configErrorf("passes[%d]: duplicated name %q", i, pass.Name)
		}
		names[pass.Name] = true

		if err := pass.validate(); err != nil {
			return errors.Wrapf(err, "passes[%d]", i)
		}
	}
	return nil
}

// Options returns the compression options of the profile.
func (p *Profile) Options() pipeline.CompressionOptions {
	return pipeline.CompressionOptions{
		Level:        *p.Level,
		Verify:       *p.Verify,
		RefreshStale: p.RefreshStale,
	}
}

// Mode returns the run mode of the profile.
func (p *Profile) Mode() pipeline.Mode {
	return pipeline.Mode{Simulate: p.Simulate}
}

// Scope returns the pass scope.
func (p Pass) Scope() pipeline.Scope {
	return pipeline.Scope{
		Extensions: p.Extensions,
		Subpath:    p.Subpath,
		InPlace:    *p.InPlace,
		Suffix:     p.Suffix,
	}
}

// Policy returns the pass cache policy.
func (p Pass) Policy() pipeline.Policy {
	return pipeline.Policy{MaxAge: *p.MaxAge}
}

func (p *Profile) defaults() {
	if p.Level == nil {
		level := gzip.DefaultCompression
		p.Level = &level
	}
	if p.Verify == nil {
		verify := true
		p.Verify = &verify
	}

	for i := range p.Passes {
		pass := &p.Passes[i]
		pass.Kind = pipeline.Kind(strings.ToLower(string(pass.Kind)))
		if pass.Name == "" {
			pass.Name = fmt.Sprintf("%s-%s-%d", pass.Kind, pass.Container, i)
		}
		if pass.InPlace == nil {
			inPlace := true
			pass.InPlace = &inPlace
		}
		if pass.Suffix == "" && !*pass.InPlace {
			pass.Suffix = DefaultSuffix
		}
		if pass.MaxAge == nil {
			maxAge := DefaultMaxAge
			pass.MaxAge = &maxAge
		}
	}
}

func (p Pass) validate() error {
	switch p.Kind {
	case pipeline.KindCompression, pipeline.KindCacheControl:
	default:
		return configErrorf("unknown kind %q", p.Kind)
	}

	if p.Container == "" {
		return configErrorf("container is required")
	}
	if len(p.Extensions) == 0 {
		return configErrorf("extensions are required")
	}
	if *p.MaxAge < 0 {
		return configErrorf("max_age must not be negative, got %d", *p.MaxAge)
	}
	if p.Schedule != "" {
		if _, err := cron.ParseStandard(p.Schedule); err != nil {
			return configErrorf("invalid schedule %q: %s", p.Schedule, err)
		}
	}
	return nil
}

func configErrorf(format string, args ...interface{}) error {
	return errors.WithStack(&pipeline.ConfigError{Message: fmt.Sprintf(format, args...)})
}
