package pipeline

import (
	"context"

	"github.com/mdouchement/blobpress/internal/objectstore"
	"github.com/pkg/errors"
)

// WildcardReadRule allows GET requests from any origin.
var WildcardReadRule = objectstore.CORSRule{
	AllowedOrigins: []string{"*"},
	AllowedMethods: []string{"GET"},
}

// SetWildcardReadCORS replaces the CORS rules of the given containers with the single WildcardReadRule.
// All the containers of the account are configured when none is given.
func SetWildcardReadCORS(ctx context.Context, c objectstore.CORSConfigurer, containers ...string) ([]string, error) {
	if len(containers) == 0 {
		var err error
		containers, err = c.Containers(ctx)
		if err != nil {
			return nil, err
		}
	}

	for _, container := range containers {
		if err := c.SetCORS(ctx, container, []objectstore.CORSRule{WildcardReadRule}); err != nil {
			return nil, errors.Wrapf(err, "container %s", container)
		}
	}
	return containers, nil
}
