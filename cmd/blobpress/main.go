package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"runtime"

	"github.com/mdouchement/logger"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	version  = "dev"
	revision = "none"
	date     = "unknown"

	verbose bool
)

func main() {
	c := &cobra.Command{
		Use:           "blobpress",
		Short:         "Compression and cache policy maintenance for Swift containers",
		Version:       fmt.Sprintf("%s - build %.7s @ %s - %s", version, revision, date, runtime.Version()),
		Args:          cobra.ExactArgs(0),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	c.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log skipped objects and requests")

	c.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Version for blobpress",
		Args:  cobra.NoArgs,
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Println(c.Version)
		},
	})

	c.AddCommand(compressCommand())
	c.AddCommand(cacheControlCommand())
	c.AddCommand(corsCommand())
	c.AddCommand(runCommand())
	c.AddCommand(scheduleCommand())

	c.AddCommand(initCmd)
	c.AddCommand(reindexCmd)
	c.AddCommand(serverCommand())

	if err := c.Execute(); err != nil {
		log.Fatalf("%+v", err)
	}
}

func newLogger() logger.Logger {
	log := logrus.New()
	log.SetFormatter(&logger.LogrusTextFormatter{
		DisableColors:   false,
		ForceColors:     true,
		ForceFormatting: true,
		PrefixRE:        regexp.MustCompile(`^(\[.*?\])\s`),
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	if verbose {
		log.SetLevel(logrus.DebugLevel)
	}
	return logger.WrapLogrus(log)
}

func nameWithEnv(env, name string) string {
	p := os.Getenv(env)
	if len(p) == 0 {
		return name
	}
	return filepath.Join(p, name)
}

func envORdefault(name, fallback string) string {
	p := os.Getenv(name)
	if len(p) == 0 {
		return fallback
	}
	return p
}
