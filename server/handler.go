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
	"errors"
	"net/http"

	"github.com/vogo/vogo/vencoding/vjson"
	"github.com/vogo/vogo/vlog"
	"github.com/vogo/vogo/vnet/vhttp/vhttpquery"
	"github.com/vogo/vogo/vnet/vhttp/vhttpresp"
	"github.com/vogo/vshorturl/cores"
	"github.com/vogo/vshorturl/router"
)

const (
	MsgOK            = "ok"
	MsgJSONWrong     = "json is wrong"
	MsgInvalidParams = "invalid json params"
	MsgInvalidHash   = "invalid hash"
	MsgInvalidURL    = "invalid url"
)

// URLRequest is the body of /add, /del and /get.
type URLRequest struct {
	Hash string `json:"hash"`
	URL  string `json:"url"`
}

type InfoResponse struct {
	Msg       string `json:"msg"`
	Records   int    `json:"records"`
	HashWidth int    `json:"hash_width"`
	Modified  bool   `json:"modified"`
	Saving    bool   `json:"saving"`
}

type Handler struct {
	store   *cores.URLStore
	cache   cores.URLCache
	webpage []byte
}

func NewHandler(store *cores.URLStore, cache cores.URLCache, webpage []byte) *Handler {
	if cache == nil {
		cache = cores.NopCache{}
	}
	if len(webpage) == 0 {
		webpage = []byte(defaultWebpage)
	}

	return &Handler{
		store:   store,
		cache:   cache,
		webpage: webpage,
	}
}

func decodeRequest(w http.ResponseWriter, r *http.Request) (URLRequest, bool) {
	var req URLRequest
	if err := vjson.UnmarshalStream(r.Body, &req); err != nil {
		vhttpresp.BadMsg(w, r, MsgJSONWrong)
		return req, false
	}
	return req, true
}

func (h *Handler) Add(w http.ResponseWriter, r *http.Request, _ router.RequestContext) {
	req, ok := decodeRequest(w, r)
	if !ok {
		return
	}

	if err := checkURL(req.URL); err != nil {
		vhttpresp.BadMsg(w, r, MsgInvalidURL+": "+err.Error())
		return
	}

	hash, err := h.store.Add(req.URL)
	if err != nil {
		if errors.Is(err, cores.ErrHashExhausted) {
			vlog.Errorf("hash space exhausted at width %d, increase hash_width", h.store.GetHashWidth())
		}
		vhttpresp.BadError(w, r, err)
		return
	}

	vhttpresp.Success(w, r, hash)
}

func (h *Handler) Del(w http.ResponseWriter, r *http.Request, _ router.RequestContext) {
	req, ok := decodeRequest(w, r)
	if !ok {
		return
	}

	switch {
	case req.Hash != "":
		if !h.store.DeleteByHash(req.Hash) {
			vhttpresp.BadMsg(w, r, MsgInvalidHash)
			return
		}
		h.evict(r, req.Hash)
	case req.URL != "":
		rec, found := h.store.DeleteRecord(req.URL)
		if !found {
			vhttpresp.BadMsg(w, r, MsgInvalidURL)
			return
		}
		h.evict(r, rec.Hash)
	default:
		vhttpresp.BadMsg(w, r, MsgInvalidParams)
		return
	}

	vhttpresp.Success(w, r, MsgOK)
}

func (h *Handler) evict(r *http.Request, hash string) {
	if err := h.cache.Remove(r.Context(), hash); err != nil {
		vlog.Warnf("remove cached url failed, hash: %s, err: %v", hash, err)
	}
}

// Get answers POST {"hash"} bodies and GET ?hash= queries.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request, _ router.RequestContext) {
	var hash string
	if r.Method == http.MethodGet {
		hash, _ = vhttpquery.String(r, "hash")
	} else {
		req, ok := decodeRequest(w, r)
		if !ok {
			return
		}
		hash = req.Hash
	}

	if hash == "" {
		vhttpresp.BadMsg(w, r, MsgInvalidParams)
		return
	}

	url := h.store.GetURL(hash)
	if url == "" {
		vhttpresp.BadMsg(w, r, MsgInvalidHash)
		return
	}

	vhttpresp.Success(w, r, url)
}

// Jump redirects /j/<hash> to the stored url.
func (h *Handler) Jump(w http.ResponseWriter, r *http.Request, ctx router.RequestContext) {
	if len(ctx.Keys) == 0 || ctx.Keys[0] == "" {
		router.WriteNotFound(w, r)
		return
	}

	hash := ctx.Keys[0]
	url, ok := h.cache.Get(r.Context(), hash)
	if !ok {
		url = h.store.GetURL(hash)
		if url == "" {
			router.WriteNotFound(w, r)
			return
		}

		if err := h.cache.Add(r.Context(), hash, url); err != nil {
			vlog.Warnf("cache url failed, hash: %s, err: %v", hash, err)
		}
	}

	http.Redirect(w, r, url, http.StatusFound)
}

func (h *Handler) Webpage(w http.ResponseWriter, _ *http.Request, _ router.RequestContext) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(h.webpage)
}

func (h *Handler) Info(w http.ResponseWriter, r *http.Request, _ router.RequestContext) {
	vhttpresp.Success(w, r, InfoResponse{
		Msg:       MsgOK,
		Records:   h.store.Len(),
		HashWidth: h.store.GetHashWidth(),
		Modified:  h.store.IsModified(),
		Saving:    h.store.IsAsyncSaving(),
	})
}

// Routes registers the service endpoints on r.
func Routes(r *router.Router, h *Handler) {
	r.POST("/add", router.Func(h.Add))
	r.POST("/del", router.Func(h.Del))
	r.POST("/get", router.Func(h.Get))
	r.GET("/get", router.Func(h.Get))
	r.GET("/j/*", router.Func(h.Jump))
	r.GET("/webpage", router.Func(h.Webpage))
	r.Any("/info", router.Func(h.Info))
}
