// Package webservertest runs the Swift emulator for tests.
package webservertest

import (
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"time"

	"github.com/mdouchement/blobpress/internal/database"
	"github.com/mdouchement/blobpress/internal/storage"
	"github.com/mdouchement/blobpress/internal/webserver"
	"github.com/mdouchement/logger"
	"github.com/ncw/swift/v2"
	"github.com/sirupsen/logrus"
)

// An Option customizes the emulator controller.
type Option func(ctrl *webserver.Controller)

// WithListingLimit sets the size of the listing pages.
func WithListingLimit(n int) Option {
	return func(ctrl *webserver.Controller) {
		ctrl.ListingLimit = n
	}
}

// Setup starts an emulator and returns a connection to it along with the cleanup function.
func Setup(options ...Option) (*swift.Connection, func()) {
	log := logrus.New()
	log.SetOutput(io.Discard)
	if os.Getenv("BLOBPRESS_TEST_LOG") != "" {
		log.SetOutput(os.Stderr)
		log.SetLevel(logrus.DebugLevel)
	}

	//

	tmp, err := os.MkdirTemp(os.TempDir(), "blobpress.")
	if err != nil {
		panic(err)
	}

	dbname := filepath.Join(tmp, "swift.db")
	if err = database.StormInit(dbname); err != nil {
		panic(err)
	}

	db, err := database.StormOpen(dbname)
	if err != nil {
		panic(err)
	}

	//

	ctrl := webserver.Controller{
		Version:  "test",
		Logger:   logger.WrapLogrus(log),
		Database: db,
		Storage:  storage.NewFileSystem(filepath.Join(tmp, "workspace")),

		Tenant:   "test",
		Domain:   "Default",
		Username: "tester",
		Password: "testing",
	}
	for _, option := range options {
		option(&ctrl)
	}
	engine := webserver.EchoEngine(ctrl)

	server := httptest.NewUnstartedServer(engine)
	server.Config.ReadTimeout = 20 * time.Second
	server.Config.WriteTimeout = 20 * time.Second
	server.Start()

	//

	c := &swift.Connection{
		AuthUrl:  server.URL + "/v3",
		Tenant:   ctrl.Tenant,
		Domain:   ctrl.Domain,
		UserName: ctrl.Username,
		ApiKey:   ctrl.Password,
		Region:   webserver.DefaultRegion,
	}

	return c, func() {
		server.Close()
		db.Close()
		os.RemoveAll(tmp)
	}
}
