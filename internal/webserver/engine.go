package webserver

import (
	"fmt"
	"net/http"
	"sort"
	"sync"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/mdouchement/blobpress/internal/database"
	"github.com/mdouchement/blobpress/internal/storage"
	middlewarepkg "github.com/mdouchement/blobpress/internal/webserver/middleware"
	"github.com/mdouchement/logger"
)

// DefaultListingLimit is the maximum number of entries returned by a listing page.
const DefaultListingLimit = 10000

// A Controller is an Iversion Of Control pattern used to init the server package.
type Controller struct {
	Version  string
	Logger   logger.Logger
	Database database.Client
	Storage  storage.Backend
	// ListingLimit caps the size of listing pages, DefaultListingLimit is used when zero.
	ListingLimit int
	//
	Region   string
	Tenant   string
	Domain   string
	Username string
	Password string
}

// EchoEngine instantiates the wep server.
// The bodies are never compressed on the fly, gzip encoded objects are served as stored.
func EchoEngine(ctrl Controller) *echo.Echo {
	if ctrl.ListingLimit <= 0 {
		ctrl.ListingLimit = DefaultListingLimit
	}
	if ctrl.Region == "" {
		ctrl.Region = DefaultRegion
	}

	engine := echo.New()
	engine.HideBanner = true
	engine.HidePort = true
	engine.Use(middleware.Recover())
	engine.Use(middlewarepkg.Logger(ctrl.Logger))

	engine.HTTPErrorHandler = middlewarepkg.NewHTTPErrorHandler(ctrl.Logger)

	engine.Pre(middleware.Rewrite(map[string]string{
		"/": "/version",
	}))

	//
	//
	//

	router := engine.Group("")

	// Generic handlers
	//
	router.GET("/version", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{
			"version": ctrl.Version,
		})
	})

	// Keystone
	//
	k3 := keystone3{
		logger:   ctrl.Logger,
		region:   ctrl.Region,
		tenant:   ctrl.Tenant,
		domain:   ctrl.Domain,
		username: ctrl.Username,
		password: ctrl.Password,
	}
	router.POST("/v3/auth/tokens", k3.Authenticate)

	// Swift
	//
	// https://docs.openstack.org/api-ref/object-store/index.html
	//

	swift := router.Group("/v1/AUTH_" + ctrl.Username)
	auth := middlewarepkg.Authenticate(CraftToken(ctrl.Username))
	lock := new(sync.Mutex)

	// Container
	//
	container := container{
		Locker:  lock,
		logger:  ctrl.Logger,
		db:      ctrl.Database,
		storage: ctrl.Storage,
		limit:   ctrl.ListingLimit,
	}
	swift.GET("", container.List, auth)
	swift.HEAD("/:container", container.Show, auth) // check existence
	swift.GET("/:container", container.Show, auth)
	swift.PUT("/:container", container.Create, auth)
	swift.POST("/:container", container.Update, auth)
	swift.DELETE("/:container", container.Delete, auth)

	// Object
	//
	object := object{
		Locker:  lock,
		logger:  ctrl.Logger,
		db:      ctrl.Database,
		storage: ctrl.Storage,
	}
	swift.HEAD("/:container/*", object.Show, auth)
	swift.GET("/:container/*", object.Download, auth)
	swift.PUT("/:container/*", object.Upload, auth)
	swift.POST("/:container/*", object.Update, auth)
	swift.DELETE("/:container/*", object.Delete, auth)

	// CORS preflight requests are never authenticated.
	swift.OPTIONS("/:container", object.Preflight)
	swift.OPTIONS("/:container/*", object.Preflight)

	return engine
}

// PrintRoutes prints the Echo engin exposed routes.
func PrintRoutes(e *echo.Echo) {
	ignored := map[string]bool{
		"":   true,
		".":  true,
		"/*": true,
	}

	routes := e.Routes()
	sort.Slice(routes, func(i int, j int) bool {
		if routes[i].Path == routes[j].Path {
			return routes[i].Method < routes[j].Method
		}
		return routes[i].Path < routes[j].Path
	})

	fmt.Println("Routes:")
	for _, route := range routes {
		if ignored[route.Path] {
			continue
		}
		fmt.Printf("%7s %s\n", route.Method, route.Path)
	}
}

// CraftToken returns the auth token for a user.
func CraftToken(username string) string {
	return "tk_" + username
}
