package middleware

import "github.com/aretw0/spectate/pkg/ports"

// Middleware allows wrapping a Journal to add behavior.
type Middleware func(ports.Journal) ports.Journal

// Chain wraps j with mws. The first middleware is the outermost, so it sees
// records first on Append and last on reads.
func Chain(j ports.Journal, mws ...Middleware) ports.Journal {
	for i := len(mws) - 1; i >= 0; i-- {
		j = mws[i](j)
	}
	return j
}
