package id

import (
	"crypto/rand"

	"github.com/oklog/ulid/v2"
)

// New generates a new ULID string, used as the dispatch reference that ties a
// delivery attempt in the logs back to an issuance.
func New() string {
	return ulid.MustNew(ulid.Now(), rand.Reader).String()
}
