package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mdouchement/blobpress/internal/config"
	"github.com/mdouchement/blobpress/internal/database"
	"github.com/mdouchement/blobpress/internal/scheduler"
	"github.com/mdouchement/blobpress/internal/storage"
	"github.com/mdouchement/blobpress/internal/webserver"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

const dbname = "swift.db"

var (
	initCmd = &cobra.Command{
		Use:   "init",
		Short: "Init the emulator database",
		Args:  cobra.ExactArgs(0),
		RunE: func(_ *cobra.Command, _ []string) error {
			return database.StormInit(nameWithEnv("DATABASE_PATH", dbname))
		},
	}

	//

	reindexCmd = &cobra.Command{
		Use:   "reindex",
		Short: "Reindex the emulator database",
		Args:  cobra.ExactArgs(0),
		RunE: func(_ *cobra.Command, _ []string) error {
			return database.StormReIndex(nameWithEnv("DATABASE_PATH", dbname))
		},
	}
)

func serverCommand() *cobra.Command {
	var binding, port string

	c := &cobra.Command{
		Use:   "server",
		Short: "Start a local Swift compatible server",
		Args:  cobra.ExactArgs(0),
		RunE: func(c *cobra.Command, _ []string) error {
			if err := config.LoadEnv(); err != nil {
				return err
			}

			ctrl := webserver.Controller{
				Version: c.Root().Version,
				Logger:  newLogger(),
				//
				Region:   envORdefault("SWIFT_STORAGE_REGION", webserver.DefaultRegion),
				Tenant:   envORdefault("SWIFT_STORAGE_TENANT", "test"),
				Domain:   envORdefault("SWIFT_STORAGE_DOMAIN", "Default"),
				Username: envORdefault("SWIFT_STORAGE_USERNAME", "tester"),
				Password: envORdefault("SWIFT_STORAGE_PASSWORD", "testing"),
			}

			//

			db, err := database.StormOpen(nameWithEnv("DATABASE_PATH", dbname))
			if err != nil {
				return errors.Wrap(err, "could not open database")
			}
			defer db.Close()
			ctrl.Database = db

			//

			ctrl.Storage = storage.NewFileSystem(nameWithEnv("STORAGE_PATH", "storage"))

			//

			s, err := scheduler.Start(scheduler.Controller{
				Logger: ctrl.Logger,
				Tasks: []scheduler.Task{
					scheduler.CleanupTask(ctrl.Logger, ctrl.Storage, "@every 30s"),
				},
			})
			if err != nil {
				return err
			}
			defer s.Stop()

			//

			engine := webserver.EchoEngine(ctrl)
			if verbose {
				webserver.PrintRoutes(engine)
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			go func() {
				<-ctx.Done()

				ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				engine.Shutdown(ctx)
			}()

			listen := fmt.Sprintf("%s:%s", binding, port)
			ctrl.Logger.Infof("Server listening on %s", listen)

			err = engine.Start(listen)
			if err == http.ErrServerClosed {
				return nil
			}
			return errors.Wrap(err, "could not run server")
		},
	}

	c.Flags().StringVarP(&binding, "binding", "b", "0.0.0.0", "Server's binding")
	c.Flags().StringVarP(&port, "port", "p", "5000", "Server's port")
	return c
}
