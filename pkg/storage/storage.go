package storage

import "context"

// Store persists a binary artifact under name and returns the locator clients
// use to fetch it. Writing the same name twice replaces the artifact.
type Store interface {
	Put(ctx context.Context, name string, data []byte) (string, error)
}
