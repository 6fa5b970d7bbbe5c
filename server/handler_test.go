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

package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vogo/vshorturl/cores"
	"github.com/vogo/vshorturl/memx"
	"github.com/vogo/vshorturl/router"
)

type testEnv struct {
	store  *cores.URLStore
	cache  *memx.MemoryURLCache
	router *router.Router
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := cores.NewURLStore(cores.WithHashWidth(6), cores.WithLogger(cores.NopLogger{}))
	cache := memx.NewMemoryURLCache(100, time.Minute)
	r := router.New(router.WithLogger(cores.NopLogger{}))
	Routes(r, NewHandler(store, cache, nil))

	return &testEnv{store: store, cache: cache, router: r}
}

func (e *testEnv) do(method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func TestAdd(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/add", `{"url":"https://example.com/page"}`)
	hash := env.store.GetHash("https://example.com/page")
	require.Len(t, hash, 6)
	assert.Contains(t, rec.Body.String(), hash)

	// adding again returns the same hash
	rec = env.do(http.MethodPost, "/add", `{"url":"https://example.com/page"}`)
	assert.Contains(t, rec.Body.String(), hash)
	assert.Equal(t, 1, env.store.Len())

	tests := []struct {
		name string
		body string
		msg  string
	}{
		{"broken json", `{"url":`, MsgJSONWrong},
		{"empty url", `{"url":""}`, MsgInvalidURL + ": " + errURLEmpty.Error()},
		{"ftp scheme", `{"url":"ftp://example.com/file"}`, MsgInvalidURL + ": " + errURLScheme.Error()},
		{"no host", `{"url":"https://"}`, MsgInvalidURL + ": " + errURLHost.Error()},
		{"too long", `{"url":"https://example.com/` + strings.Repeat("a", maxURLLength) + `"}`, MsgInvalidURL + ": " + errURLTooLong.Error()},
		{"line break", `{"url":"https://example.com/\n0 ----"}`, MsgInvalidURL + ": url is malformed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(http.MethodPost, "/add", tt.body)
			assert.Contains(t, rec.Body.String(), tt.msg)
		})
	}

	assert.Equal(t, 1, env.store.Len())
}

func TestGet(t *testing.T) {
	env := newTestEnv(t)
	hash, err := env.store.Add("https://example.com/get")
	require.NoError(t, err)

	rec := env.do(http.MethodPost, "/get", `{"hash":"`+hash+`"}`)
	assert.Contains(t, rec.Body.String(), "https://example.com/get")

	rec = env.do(http.MethodGet, "/get?hash="+hash, "")
	assert.Contains(t, rec.Body.String(), "https://example.com/get")

	rec = env.do(http.MethodPost, "/get", `{"hash":"zzzzzz"}`)
	assert.Contains(t, rec.Body.String(), MsgInvalidHash)

	rec = env.do(http.MethodPost, "/get", `{}`)
	assert.Contains(t, rec.Body.String(), MsgInvalidParams)

	rec = env.do(http.MethodPost, "/get", `not json`)
	assert.Contains(t, rec.Body.String(), MsgJSONWrong)
}

func TestDel(t *testing.T) {
	env := newTestEnv(t)
	hashA, err := env.store.Add("https://a.example.com")
	require.NoError(t, err)
	_, err = env.store.Add("https://b.example.com")
	require.NoError(t, err)

	// warm the cache through a redirect
	env.do(http.MethodGet, "/j/"+hashA, "")
	_, cached := env.cache.Get(testContext(t), hashA)
	require.True(t, cached)

	rec := env.do(http.MethodPost, "/del", `{"hash":"`+hashA+`"}`)
	assert.Contains(t, rec.Body.String(), MsgOK)
	assert.Equal(t, "", env.store.GetURL(hashA))
	_, cached = env.cache.Get(testContext(t), hashA)
	assert.False(t, cached)

	rec = env.do(http.MethodPost, "/del", `{"hash":"`+hashA+`"}`)
	assert.Contains(t, rec.Body.String(), MsgInvalidHash)

	// deleting by url evicts the hash the url had
	hashB := env.store.GetHash("https://b.example.com")
	env.do(http.MethodGet, "/j/"+hashB, "")
	_, cached = env.cache.Get(testContext(t), hashB)
	require.True(t, cached)

	rec = env.do(http.MethodPost, "/del", `{"url":"https://b.example.com"}`)
	assert.Contains(t, rec.Body.String(), MsgOK)
	assert.Equal(t, 0, env.store.Len())
	_, cached = env.cache.Get(testContext(t), hashB)
	assert.False(t, cached)

	rec = env.do(http.MethodPost, "/del", `{"url":"https://b.example.com"}`)
	assert.Contains(t, rec.Body.String(), MsgInvalidURL)

	rec = env.do(http.MethodPost, "/del", `{}`)
	assert.Contains(t, rec.Body.String(), MsgInvalidParams)
}

func TestJump(t *testing.T) {
	env := newTestEnv(t)
	hash, err := env.store.Add("https://example.com/target")
	require.NoError(t, err)

	rec := env.do(http.MethodGet, "/j/"+hash, "")
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "https://example.com/target", rec.Header().Get("Location"))

	// served from the cache once the store forgot the hash
	require.True(t, env.store.DeleteByHash(hash))
	rec = env.do(http.MethodGet, "/j/"+hash, "")
	assert.Equal(t, http.StatusFound, rec.Code)

	tests := []string{"/j/unknown", "/j/", "/j/a/b"}
	for _, target := range tests {
		t.Run(target, func(t *testing.T) {
			rec := env.do(http.MethodGet, target, "")
			assert.Equal(t, http.StatusNotFound, rec.Code)
			assert.Contains(t, rec.Body.String(), "404 Not Found")
		})
	}
}

func TestWebpageAndInfo(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/webpage", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, defaultWebpage, rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")

	for _, method := range []string{http.MethodGet, http.MethodPost, http.MethodPut} {
		rec = env.do(method, "/info", "")
		assert.Contains(t, rec.Body.String(), `"hash_width":6`)
	}

	rec = env.do(http.MethodOptions, "/add", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	rec = env.do(http.MethodGet, "/add", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCustomWebpage(t *testing.T) {
	store := cores.NewURLStore(cores.WithLogger(cores.NopLogger{}))
	r := router.New(router.WithLogger(cores.NopLogger{}))
	Routes(r, NewHandler(store, nil, []byte("<p>custom</p>")))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/webpage", nil))
	assert.Equal(t, "<p>custom</p>", rec.Body.String())
}

func TestCheckURL(t *testing.T) {
	tests := []struct {
		url string
		err error
	}{
		{"https://example.com", nil},
		{"http://example.com/a/b?c=d", nil},
		{"", errURLEmpty},
		{"https://example.com/" + strings.Repeat("a", maxURLLength), errURLTooLong},
		{"example.com", errURLScheme},
		{"mailto:someone@example.com", errURLScheme},
		{"http://", errURLHost},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			err := checkURL(tt.url)
			if tt.err == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.err)
			}
		})
	}

	for _, raw := range []string{"://bad", "https://example.com/\nx", "https://example.com/\r"} {
		err := checkURL(raw)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "url is malformed")
		assert.NotContains(t, err.Error(), raw)
	}
}

// testContext is the equivalent of t.Context (Go 1.24+) for older toolchains.
func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return ctx
}
