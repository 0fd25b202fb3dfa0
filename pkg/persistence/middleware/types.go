package middleware

import "github.com/aretw0/ivy/pkg/ports"

// Middleware allows wrapping a Datastore to add behavior.
type Middleware func(ports.Datastore) ports.Datastore

// Chain applies middlewares so that the first one is the outermost.
func Chain(store ports.Datastore, mws ...Middleware) ports.Datastore {
	for i := len(mws) - 1; i >= 0; i-- {
		store = mws[i](store)
	}
	return store
}
