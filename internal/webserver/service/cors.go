package service

import (
	"strings"
)

// Container metadata keys holding the CORS configuration.
const (
	MetaAllowOrigin   = "access-control-allow-origin"
	MetaExposeHeaders = "access-control-expose-headers"
	MetaMaxAge        = "access-control-max-age"
)

// AllowedMethods are the methods advertised to preflight requests.
const AllowedMethods = "HEAD, GET, PUT, POST, DELETE, OPTIONS"

// CORSHeaders returns the response headers granting origin access according to the container metadata.
// It returns nil when there is no origin or when the origin is not allowed.
func CORSHeaders(metas map[string]string, origin string) map[string]string {
	if origin == "" {
		return nil
	}

	allowed := ""
	for _, o := range strings.Fields(metas[MetaAllowOrigin]) {
		if o == "*" {
			allowed = "*"
			break
		}
		if o == origin {
			allowed = origin
		}
	}
	if allowed == "" {
		return nil
	}

	headers := map[string]string{
		"Access-Control-Allow-Origin": allowed,
	}
	if allowed != "*" {
		headers["Vary"] = "Origin"
	}
	if v := metas[MetaExposeHeaders]; v != "" {
		headers["Access-Control-Expose-Headers"] = strings.Join(strings.Fields(v), ", ")
	}
	return headers
}

// PreflightHeaders returns the response headers of an OPTIONS request.
// It returns nil when the origin is not allowed.
func PreflightHeaders(metas map[string]string, origin string) map[string]string {
	headers := CORSHeaders(metas, origin)
	if headers == nil {
		return nil
	}

	delete(headers, "Access-Control-Expose-Headers")
	headers["Access-Control-Allow-Methods"] = AllowedMethods
	if v := metas[MetaMaxAge]; v != "" {
		headers["Access-Control-Max-Age"] = v
	}
	return headers
}
