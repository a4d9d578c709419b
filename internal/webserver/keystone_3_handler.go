package webserver

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/mdouchement/blobpress/internal/webserver/weberror"
	"github.com/mdouchement/logger"
	"github.com/ncw/swift/v2"
)

// DefaultRegion is the region of the object-store endpoint advertised in the catalog.
const DefaultRegion = "RegionOne"

type keystone3 struct {
	logger logger.Logger

	region   string
	tenant   string
	domain   string
	username string
	password string
}

// Authenticate issues a token and a catalog exposing the object-store endpoint.
// Only the password method scoped to a project is supported.
func (h *keystone3) Authenticate(c echo.Context) error {
	c.Set("handler_method", "keystone3.Authenticate")

	// Filter params
	var params keystone3params
	if err := c.Bind(&params); err != nil {
		return weberror.Swift(swift.BadRequest)
	}

	// Authorization
	if !h.supported(params) {
		return weberror.Swift(swift.BadRequest)
	}
	if !h.authorized(params) {
		h.logger.Debugf("keystone3.Authenticate: rejected user %q", params.Auth.Identity.Password.User.Name)
		return weberror.Swift(swift.AuthorizationFailed)
	}

	// Render response
	now := time.Now().UTC()
	c.Response().Header().Set("X-Subject-Token", CraftToken(h.username))
	return c.JSON(http.StatusCreated, keystone3reponse{
		Token: Token{
			IssuedAt:  now.Format(time.RFC3339),
			ExpiresAt: now.AddDate(0, 1, 0).Format(time.RFC3339),
			Catalog: []Catalog{
				{
					Type: "object-store",
					ID:   "050726f278654128aba89757ae25950c",
					Name: "swift",
					Endpoints: []Endpoint{
						{
							ID:        "068d1b359ee84b438266cb736d81de97",
							Interface: swift.EndpointTypePublic,
							Region:    h.region,
							RegionID:  h.region,
							URL:       c.Scheme() + "://" + c.Request().Host + "/v1/AUTH_" + h.username,
						},
					},
				},
			},
		},
	})
}

func (h *keystone3) supported(params keystone3params) bool {
	for _, method := range params.Auth.Identity.Methods {
		if method == "password" {
			return params.Auth.Identity.Password != nil
		}
	}
	return false
}

func (h *keystone3) authorized(params keystone3params) bool {
	scope := params.Auth.Scope
	if scope == nil || scope.Project == nil || scope.Project.Domain == nil {
		return false
	}

	user := params.Auth.Identity.Password.User
	return scope.Project.Domain.Name == h.domain &&
		scope.Project.Name == h.tenant &&
		user.Name == h.username &&
		user.Password == h.password
}

//
//
//
//
// Params
//
//
//
//

// V3 Authentication request
// http://docs.openstack.org/developer/keystone/api_curl_examples.html
// http://developer.openstack.org/api-ref-identity-v3.html
// Code imported from: https://github.com/ncw/swift
type keystone3params struct {
	Auth struct {
		Identity struct {
			Methods  []string        `json:"methods"`
			Password *v3AuthPassword `json:"password,omitempty"`
		} `json:"identity"`
		Scope *v3Scope `json:"scope,omitempty"`
	} `json:"auth"`
}

//
// Response
//

type keystone3reponse struct {
	Token `json:"token"`
}

type Token struct {
	ExpiresAt string    `json:"expires_at"`
	IssuedAt  string    `json:"issued_at"`
	Catalog   []Catalog `json:"catalog"`
}

type Catalog struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Type      string     `json:"type"`
	Endpoints []Endpoint `json:"endpoints"`
}

type Endpoint struct {
	ID        string             `json:"id"`
	RegionID  string             `json:"region_id"`
	URL       string             `json:"url"`
	Region    string             `json:"region"`
	Interface swift.EndpointType `json:"interface"`
}

//
// Types
//

type v3Scope struct {
	Project *v3Project `json:"project,omitempty"`
	Domain  *v3Domain  `json:"domain,omitempty"`
}

type v3Domain struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
}

type v3Project struct {
	ID     string    `json:"id,omitempty"`
	Name   string    `json:"name,omitempty"`
	Domain *v3Domain `json:"domain,omitempty"`
}

type v3User struct {
	Domain   *v3Domain `json:"domain,omitempty"`
	ID       string    `json:"id,omitempty"`
	Name     string    `json:"name,omitempty"`
	Password string    `json:"password,omitempty"`
}

type v3AuthPassword struct {
	User v3User `json:"user"`
}
