// Package middleware holds the HTTP middleware shared by every module.
package middleware

import "net/http"

// Middleware wraps a handler.
type Middleware = func(http.Handler) http.Handler

// System is an ordered middleware stack. The first middleware added is the
// outermost.
type System interface {
	Use(mw ...Middleware)
	Apply(handler http.Handler) http.Handler
}

type stack []Middleware

// New creates an empty System.
func New() System {
	return &stack{}
}

func (s *stack) Use(mw ...Middleware) {
	*s = append(*s, mw...)
}

func (s *stack) Apply(handler http.Handler) http.Handler {
	for i := len(*s) - 1; i >= 0; i-- {
		handler = (*s)[i](handler)
	}
	return handler
}
