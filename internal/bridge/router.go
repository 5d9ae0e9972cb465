// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package bridge

import (
	"context"

	"github.com/gobwas/glob"
	"github.com/samber/oops"
)

// Handler processes one command.
type Handler func(ctx context.Context, cmd Command) error

type route struct {
	pattern string
	glob    glob.Glob
	handler Handler
}

// Router dispatches commands by type using glob patterns. Routes are tried
// in registration order; the first match wins. Register all routes before
// routing starts.
type Router struct {
	routes   []route
	fallback Handler
}

// NewRouter creates a router. fallback receives unmatched commands and may
// be nil.
func NewRouter(fallback Handler) *Router {
	return &Router{fallback: fallback}
}

// Handle registers h for command types matching pattern (e.g. "npc_*").
func (r *Router) Handle(pattern string, h Handler) error {
	g, err := glob.Compile(pattern)
	if err != nil {
		return oops.In("bridge").
			Code("INVALID_ROUTE_PATTERN").
			With("pattern", pattern).
			Wrap(err)
	}
	r.routes = append(r.routes, route{pattern: pattern, glob: g, handler: h})
	return nil
}

// MustHandle is Handle that panics on an invalid pattern.
func (r *Router) MustHandle(pattern string, h Handler) {
	if err := r.Handle(pattern, h); err != nil {
		panic(err)
	}
}

// Route runs the handler for cmd. It returns the matched pattern, or "" when
// the fallback (or nothing) handled it.
func (r *Router) Route(ctx context.Context, cmd Command) (string, error) {
	for _, rt := range r.routes {
		if rt.glob.Match(cmd.Type) {
			return rt.pattern, rt.handler(ctx, cmd)
		}
	}
	if r.fallback != nil {
		return "", r.fallback(ctx, cmd)
	}
	return "", nil
}
