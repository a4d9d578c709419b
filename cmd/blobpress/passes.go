package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/labstack/echo/v4"
	"github.com/mdouchement/blobpress/internal/config"
	"github.com/mdouchement/blobpress/internal/metrics"
	"github.com/mdouchement/blobpress/internal/objectstore"
	"github.com/mdouchement/blobpress/internal/pipeline"
	"github.com/mdouchement/blobpress/internal/scheduler"
	"github.com/mdouchement/logger"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

// passFlags holds the flags shared by the single pass commands.
type passFlags struct {
	extensions   []string
	subpath      string
	inPlace      bool
	suffix       string
	maxAge       int
	level        int
	noVerify     bool
	refreshStale bool
	simulate     bool
	workers      int
	pageSize     int
	report       string
	retryFrom    string
}

func (f *passFlags) register(c *cobra.Command, compression bool) {
	c.Flags().StringSliceVarP(&f.extensions, "ext", "e", nil, "Extension of the objects to process (repeatable, e.g. .js)")
	c.Flags().StringVar(&f.subpath, "subpath", "", "Restrict the pass to the objects under this path")
	c.Flags().IntVar(&f.maxAge, "max-age", config.DefaultMaxAge, "Cache-Control max-age in seconds")
	c.Flags().BoolVar(&f.simulate, "simulate", false, "Log the intended writes without performing them")
	c.Flags().IntVarP(&f.workers, "workers", "w", 0, "Number of objects processed concurrently (default number of CPUs)")
	c.Flags().IntVar(&f.pageSize, "page-size", 0, "Number of objects requested per listing page")
	c.Flags().StringVar(&f.report, "report", "", "Write the run report to this file")
	c.Flags().StringVar(&f.retryFrom, "retry-from", "", "Only process the failed objects of this report")

	if !compression {
		return
	}
	c.Flags().BoolVar(&f.inPlace, "in-place", true, "Overwrite the original objects instead of creating siblings")
	c.Flags().StringVar(&f.suffix, "suffix", config.DefaultSuffix, "Suffix of the compressed siblings")
	c.Flags().IntVar(&f.level, "level", gzip.DefaultCompression, "Gzip compression level")
	c.Flags().BoolVar(&f.noVerify, "no-verify", false, "Skip the decompression check before committing")
	c.Flags().BoolVar(&f.refreshStale, "refresh-stale", false, "Rebuild the siblings whose source has changed")
}

func (f *passFlags) scope(kind pipeline.Kind, container string) (pipeline.Scope, error) {
	scope := pipeline.Scope{
		Extensions: f.extensions,
		Subpath:    f.subpath,
		InPlace:    f.inPlace,
		Suffix:     f.suffix,
	}
	if f.retryFrom == "" {
		return scope, nil
	}

	report, err := pipeline.ReadReport(f.retryFrom)
	if err != nil {
		return scope, err
	}
	if report.Kind != kind || report.Container != container {
		return scope, errors.Errorf("%s is a %s report of %s", f.retryFrom, report.Kind, report.Container)
	}

	scope.Paths = report.FailedNames()
	return scope, nil
}

func compressCommand() *cobra.Command {
	var flags passFlags

	c := &cobra.Command{
		Use:   "compress <container>",
		Short: "Gzip the matching objects of a container",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runSinglePass(pipeline.KindCompression, args[0], flags)
		},
	}
	flags.register(c, true)
	return c
}

func cacheControlCommand() *cobra.Command {
	var flags passFlags

	c := &cobra.Command{
		Use:   "cache-control <container>",
		Short: "Stamp the Cache-Control header on the matching objects of a container",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runSinglePass(pipeline.KindCacheControl, args[0], flags)
		},
	}
	flags.register(c, false)
	return c
}

func runSinglePass(kind pipeline.Kind, container string, flags passFlags) error {
	scope, err := flags.scope(kind, container)
	if err != nil {
		return err
	}
	if flags.retryFrom != "" && len(scope.Paths) == 0 {
		fmt.Printf("Nothing to retry from %s\n", flags.retryFrom)
		return nil
	}

	store, err := newStore(flags.pageSize)
	if err != nil {
		return err
	}

	log := newLogger()
	runner := pipeline.New(pipeline.Controller{
		Logger:   log,
		Store:    store,
		Reporter: pipeline.NewLogReporter(log),
		Workers:  flags.workers,
		Compression: pipeline.CompressionOptions{
			Level:        flags.level,
			Verify:       !flags.noVerify,
			RefreshStale: flags.refreshStale,
		},
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pass := config.Pass{
		Name:      string(kind),
		Kind:      kind,
		Container: container,
	}
	mode := pipeline.Mode{Simulate: flags.simulate}
	policy := pipeline.Policy{MaxAge: flags.maxAge}

	var report *pipeline.Report
	switch kind {
	case pipeline.KindCompression:
		report, err = runner.CompressionPass(ctx, container, scope, policy, mode)
	default:
		report, err = runner.CacheControlPass(ctx, container, scope, policy, mode)
	}

	return finish(pass, report, err, flags.report)
}

func corsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "cors [container...]",
		Short: "Allow GET requests from any origin on the given containers (all when none given)",
		RunE: func(_ *cobra.Command, args []string) error {
			store, err := newStore(0)
			if err != nil {
				return err
			}

			containers, err := pipeline.SetWildcardReadCORS(context.Background(), store, args...)
			if err != nil {
				return err
			}

			log := newLogger().WithPrefix("[cors]")
			for _, container := range containers {
				log.Infof("Wildcard read CORS set on %s", container)
			}
			return nil
		},
	}
}

func runCommand() *cobra.Command {
	var (
		filename string
		report   string
	)

	c := &cobra.Command{
		Use:   "run",
		Short: "Run once every pass of a profile",
		Args:  cobra.ExactArgs(0),
		RunE: func(_ *cobra.Command, _ []string) error {
			profile, err := config.Load(filename)
			if err != nil {
				return err
			}

			store, err := newStore(profile.PageSize)
			if err != nil {
				return err
			}

			log := newLogger()
			runner := pipeline.New(pipeline.Controller{
				Logger:      log,
				Store:       store,
				Reporter:    pipeline.NewLogReporter(log),
				Workers:     profile.Workers,
				Compression: profile.Options(),
			})

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			var failed []string
			for _, pass := range profile.Passes {
				r, err := scheduler.RunPass(ctx, runner, profile.Mode(), pass)

				var output string
				if report != "" {
					output = fmt.Sprintf("%s-%s.yml", strings.TrimSuffix(report, ".yml"), pass.Name)
				}

				if err = finish(pass, r, err, output); err != nil {
					if ctx.Err() != nil || !isFailure(err) {
						return err
					}
					log.Error(err)
					failed = append(failed, pass.Name)
				}
			}

			if len(failed) > 0 {
				return errors.Errorf("passes failed: %s", strings.Join(failed, ", "))
			}
			return nil
		},
	}

	c.Flags().StringVarP(&filename, "config", "c", "blobpress.yml", "Profile file")
	c.Flags().StringVar(&report, "report", "", "Write the reports to files prefixed by this name")
	return c
}

func scheduleCommand() *cobra.Command {
	var (
		filename string
		listen   string
	)

	c := &cobra.Command{
		Use:   "schedule",
		Short: "Run the scheduled passes of a profile and expose their metrics",
		Args:  cobra.ExactArgs(0),
		RunE: func(_ *cobra.Command, _ []string) error {
			profile, err := config.Load(filename)
			if err != nil {
				return err
			}

			store, err := newStore(profile.PageSize)
			if err != nil {
				return err
			}

			registry := prometheus.NewRegistry()
			reporter, err := metrics.NewReporter(registry)
			if err != nil {
				return err
			}

			log := newLogger()
			runner := pipeline.New(pipeline.Controller{
				Logger:      log,
				Store:       store,
				Reporter:    pipeline.Reporters(pipeline.NewLogReporter(log), reporter),
				Workers:     profile.Workers,
				Compression: profile.Options(),
			})

			tasks := scheduler.PassTasks(log, runner, profile, func(_ config.Pass, report *pipeline.Report, err error) {
				if report != nil {
					reporter.ObserveRun(report, err)
				}
			})
			if len(tasks) == 0 {
				return errors.New("no scheduled pass in the profile")
			}

			s, err := scheduler.Start(scheduler.Controller{
				Logger: log,
				Tasks:  tasks,
			})
			if err != nil {
				return err
			}
			defer s.Stop()

			//

			engine := echo.New()
			engine.HideBanner = true
			engine.HidePort = true
			engine.GET("/metrics", echo.WrapHandler(metrics.Handler(registry)))

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			go func() {
				<-ctx.Done()

				ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				engine.Shutdown(ctx)
			}()

			log.WithPrefix("[metrics]").Infof("Metrics served on %s/metrics", listen)
			err = engine.Start(listen)
			if err == http.ErrServerClosed {
				return nil
			}
			return errors.Wrap(err, "could not serve metrics")
		},
	}

	c.Flags().StringVarP(&filename, "config", "c", "blobpress.yml", "Profile file")
	c.Flags().StringVar(&listen, "metrics", ":9100", "Metrics listening address")
	return c
}

//
//-----
//

// errFailures is returned when some objects of a pass failed.
var errFailures = errors.New("some objects failed")

func isFailure(err error) bool {
	return errors.Cause(err) == errFailures
}

// finish writes the report and turns the failed objects into an error.
func finish(pass config.Pass, report *pipeline.Report, err error, output string) error {
	if report != nil && output != "" {
		if werr := report.WriteFile(output); werr != nil {
			return werr
		}
	}
	if err != nil {
		return errors.Wrapf(err, "pass %s", pass.Name)
	}

	if report.Failed > 0 {
		printFailures(newLogger().WithPrefix(fmt.Sprintf("[%s]", pass.Name)), report)
		return errors.Wrapf(errFailures, "pass %s: %d/%d", pass.Name, report.Failed, report.Total())
	}
	return nil
}

func printFailures(log logger.Logger, report *pipeline.Report) {
	for _, f := range report.Failures {
		if f.Inconsistent {
			log.Errorf("%s failed at %s (inconsistent state): %s", f.Path, f.Stage, f.Error)
			continue
		}
		log.Errorf("%s failed at %s: %s", f.Path, f.Stage, f.Error)
	}
}

func newStore(pageSize int) (*objectstore.Swift, error) {
	if err := config.LoadEnv(); err != nil {
		return nil, err
	}

	credentials, err := config.SwiftFromEnv()
	if err != nil {
		return nil, err
	}

	var options []objectstore.SwiftOption
	if pageSize > 0 {
		options = append(options, objectstore.WithPageSize(pageSize))
	}
	return objectstore.NewSwift(credentials.Connection(), options...), nil
}
