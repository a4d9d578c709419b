package scheduler

import (
	"context"
	"fmt"

	"github.com/mdouchement/blobpress/internal/config"
	"github.com/mdouchement/blobpress/internal/pipeline"
	"github.com/mdouchement/blobpress/internal/storage"
	"github.com/mdouchement/logger"
	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
)

type (
	// A Controller is an Iversion Of Control pattern used to init the scheduler package.
	Controller struct {
		Logger logger.Logger
		Tasks  []Task
	}

	// A Task is a function run on a cron specification.
	Task struct {
		Name          string
		Specification string
		Run           func(ctx context.Context)
	}

	// An Observer is notified of every completed pass.
	Observer func(pass config.Pass, report *pipeline.Report, err error)

	// A Scheduler runs the registered tasks until stopped.
	Scheduler struct {
		cron   *cron.Cron
		cancel context.CancelFunc
	}
)

// Start lauches the scheduler asynchronously.
// A task is skipped while its previous run is still running.
func Start(c Controller) (*Scheduler, error) {
	log := c.Logger.WithPrefix("[scheduler]")

	cron := cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cronLogger{log: log}),
	))

	ctx, cancel := context.WithCancel(context.Background())
	for _, task := range c.Tasks {
		task := task

		_, err := cron.AddFunc(task.Specification, func() {
			task.Run(ctx)
		})
		if err != nil {
			cancel()
			return nil, errors.Wrapf(err, "could not register task %s", task.Name)
		}
		log.Infof("Task %s registred (%s)", task.Name, task.Specification)
	}

	cron.Start()
	log.Info("Scheduler is running")

	return &Scheduler{
		cron:   cron,
		cancel: cancel,
	}, nil
}

// Stop cancels the running tasks and waits for them to return.
func (s *Scheduler) Stop() {
	s.cancel()
	<-s.cron.Stop().Done()
}

// PassTasks returns a task for every scheduled pass of the profile.
// The passes without schedule are ignored.
func PassTasks(log logger.Logger, runner *pipeline.Runner, profile *config.Profile, observer Observer) []Task {
	var tasks []Task
	for _, pass := range profile.Passes {
		if pass.Schedule == "" {
			continue
		}

		pass := pass
		tasks = append(tasks, Task{
			Name:          pass.Name,
			Specification: pass.Schedule,
			Run: func(ctx context.Context) {
				report, err := RunPass(ctx, runner, profile.Mode(), pass)
				if err != nil {
					log.WithPrefix(fmt.Sprintf("[%s]", pass.Name)).Error(err)
				}
				if observer != nil {
					observer(pass, report, err)
				}
			},
		})
	}
	return tasks
}

// CleanupTask returns a task removing the leftovers of the storage.
func CleanupTask(log logger.Logger, backend storage.Backend, specification string) Task {
	log = log.WithPrefix("[cleanup]")

	return Task{
		Name:          "cleanup",
		Specification: specification,
		Run: func(_ context.Context) {
			log.Debug("Storage cleanup")
			if err := backend.Cleanup(); err != nil {
				log.Error(err)
			}
		},
	}
}

// RunPass runs the given pass.
func RunPass(ctx context.Context, runner *pipeline.Runner, mode pipeline.Mode, pass config.Pass) (*pipeline.Report, error) {
	switch pass.Kind {
	case pipeline.KindCompression:
		return runner.CompressionPass(ctx, pass.Container, pass.Scope(), pass.Policy(), mode)
	case pipeline.KindCacheControl:
		return runner.CacheControlPass(ctx, pass.Container, pass.Scope(), pass.Policy(), mode)
	default:
		return nil, errors.WithStack(&pipeline.ConfigError{Message: fmt.Sprintf("unknown kind %q", pass.Kind)})
	}
}

//
//-----
//

// cronLogger writes the cron messages to the logger.
type cronLogger struct {
	log logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debugf("%s %v", msg, keysAndValues)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Errorf("%s %v: %s", msg, keysAndValues, err)
}
