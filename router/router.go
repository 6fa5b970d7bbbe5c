/*
 * Licensed to the Apache Software Foundation (ASF) under one or more
 * contributor license agreements.  See the NOTICE file distributed with
 * this work for additional information regarding copyright ownership.
 * The ASF licenses this file to You under the Apache License, Version 2.0
 * (the "License"); you may not use this file except in compliance with
 * the License.  You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package router dispatches (method, path) pairs to handler factories.
//
// Patterns without '*' are matched exactly. Other patterns are split on '/'
// into a chain of segment matchers:
//
//	literal  matches the identical segment
//	*        matches any single segment and captures it
//	**       final segment only, matches one or more remaining segments and
//	         captures them joined by '/'
//
// Chains are stored in an arena and indexed by their first literal segment.
// The first registered chain that matches wins.
//
// Routes are registered before serving starts, lookups take no locks.
package router

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/vogo/vshorturl/cores"
)

// MethodAny registers a route for every method. Method specific routes are tried first.
const MethodAny = "*"

const (
	captureSegment = "*"
	restSegment    = "**"

	// wildcardKey indexes chains starting with a capture segment
	wildcardKey = "*"
)

// RequestContext carries the segments captured by wildcard patterns.
type RequestContext struct {
	Keys []string
}

// HandlerFactory builds the handler of one request.
type HandlerFactory func(ctx RequestContext) http.Handler

// Func adapts a plain function to a HandlerFactory.
func Func(fn func(w http.ResponseWriter, r *http.Request, ctx RequestContext)) HandlerFactory {
	return func(ctx RequestContext) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fn(w, r, ctx)
		})
	}
}

type nodeKind uint8

const (
	literalNode nodeKind = iota
	captureNode
	restNode
	terminalNode
)

// node is one element of a chain. Successors are referenced by arena index.
type node struct {
	kind    nodeKind
	key     string
	next    int  // -1 on the terminal node
	size    int  // chain length, terminal node included
	rest    bool // chain ends with "**"
	factory HandlerFactory
}

type table struct {
	exact  map[string]HandlerFactory
	chains map[string][]int // first segment key -> chain heads
}

type Router struct {
	nodes  []node
	tables map[string]*table

	notFound HandlerFactory
	options  HandlerFactory
	logger   cores.Logger
}

type Option func(r *Router)

func WithNotFound(factory HandlerFactory) Option {
	return func(r *Router) {
		r.notFound = factory
	}
}

func WithOptions(factory HandlerFactory) Option {
	return func(r *Router) {
		r.options = factory
	}
}

func WithLogger(logger cores.Logger) Option {
	return func(r *Router) {
		r.logger = logger
	}
}

func New(opts ...Option) *Router {
	r := &Router{
		tables:   make(map[string]*table),
		notFound: NotFound,
		options:  Preflight,
		logger:   cores.VlogLogger{},
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

func (r *Router) GET(pattern string, factory HandlerFactory) {
	r.Register(http.MethodGet, pattern, factory)
}

func (r *Router) POST(pattern string, factory HandlerFactory) {
	r.Register(http.MethodPost, pattern, factory)
}

func (r *Router) Any(pattern string, factory HandlerFactory) {
	r.Register(MethodAny, pattern, factory)
}

// Register adds a route. It panics on an invalid pattern or a duplicate exact pattern.
func (r *Router) Register(method, pattern string, factory HandlerFactory) {
	if method == "" {
		panic("router: empty method")
	}
	if factory == nil {
		panic("router: nil handler factory for " + pattern)
	}
	if !strings.HasPrefix(pattern, "/") {
		panic(fmt.Sprintf("router: pattern %q must begin with '/'", pattern))
	}

	t := r.table(method)

	if !strings.Contains(pattern, "*") {
		if _, exists := t.exact[pattern]; exists {
			panic(fmt.Sprintf("router: duplicate route %s %s", method, pattern))
		}
		t.exact[pattern] = factory
		r.logger.Debugf("register route %s %s", method, pattern)
		return
	}

	segments := splitPath(pattern)
	rest := false
	for i, segment := range segments {
		switch {
		case segment == restSegment:
			if i != len(segments)-1 {
				panic(fmt.Sprintf("router: %q must be the last segment of %q", restSegment, pattern))
			}
			rest = true
		case segment != captureSegment && strings.Contains(segment, "*"):
			panic(fmt.Sprintf("router: invalid wildcard segment %q in %q", segment, pattern))
		}
	}

	size := len(segments) + 1
	head := len(r.nodes)
	for i, segment := range segments {
		n := node{next: head + i + 1, size: size, rest: rest}
		switch segment {
		case captureSegment:
			n.kind = captureNode
		case restSegment:
			n.kind = restNode
		default:
			n.kind = literalNode
			n.key = segment
		}
		r.nodes = append(r.nodes, n)
	}
	r.nodes = append(r.nodes, node{kind: terminalNode, next: -1, size: size, rest: rest, factory: factory})

	key := wildcardKey
	if r.nodes[head].kind == literalNode {
		key = r.nodes[head].key
	}
	t.chains[key] = append(t.chains[key], head)

	r.logger.Debugf("register route %s %s", method, pattern)
}

func (r *Router) table(method string) *table {
	t, ok := r.tables[method]
	if !ok {
		t = &table{
			exact:  make(map[string]HandlerFactory),
			chains: make(map[string][]int),
		}
		r.tables[method] = t
	}
	return t
}

// Resolve finds the factory for method and path along with the captured segments.
// OPTIONS always resolves to the preflight factory.
func (r *Router) Resolve(method, path string) (HandlerFactory, []string, bool) {
	if method == http.MethodOptions {
		return r.options, nil, true
	}

	if method != MethodAny {
		if factory, keys, ok := r.lookup(r.tables[method], path); ok {
			return factory, keys, true
		}
	}

	return r.lookup(r.tables[MethodAny], path)
}

func (r *Router) lookup(t *table, path string) (HandlerFactory, []string, bool) {
	if t == nil {
		return nil, nil, false
	}

	if factory, ok := t.exact[path]; ok {
		return factory, nil, true
	}

	if len(t.chains) == 0 {
		return nil, nil, false
	}

	segments := splitPath(path)
	if factory, keys, ok := r.match(t.chains[segments[0]], segments); ok {
		return factory, keys, true
	}

	return r.match(t.chains[wildcardKey], segments)
}

func (r *Router) match(heads []int, segments []string) (HandlerFactory, []string, bool) {
	for _, head := range heads {
		if factory, keys, ok := r.walk(head, segments); ok {
			return factory, keys, true
		}
	}
	return nil, nil, false
}

func (r *Router) walk(head int, segments []string) (HandlerFactory, []string, bool) {
	first := &r.nodes[head]
	if first.rest {
		if len(segments)+1 < first.size {
			return nil, nil, false
		}
	} else if len(segments)+1 != first.size {
		return nil, nil, false
	}

	var keys []string
	id := head
	for i := 0; i < len(segments); i++ {
		n := &r.nodes[id]
		switch n.kind {
		case literalNode:
			if n.key != segments[i] {
				return nil, nil, false
			}
		case captureNode:
			keys = append(keys, segments[i])
		case restNode:
			keys = append(keys, strings.Join(segments[i:], "/"))
			i = len(segments)
		}
		id = n.next
	}

	terminal := &r.nodes[id]
	if terminal.kind != terminalNode {
		return nil, nil, false
	}

	return terminal.factory, keys, true
}

// ServeHTTP implements http.Handler.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	factory, keys, ok := r.Resolve(req.Method, req.URL.Path)
	if !ok {
		factory = r.notFound
	}

	factory(RequestContext{Keys: keys}).ServeHTTP(w, req)
}

// splitPath drops the leading '/' and splits on '/'.
func splitPath(path string) []string {
	return strings.Split(strings.TrimPrefix(path, "/"), "/")
}
