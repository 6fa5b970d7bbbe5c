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

package cores

import (
	"sort"
	"strings"
	"sync"
)

type StoreOption func(s *URLStore)

func WithHashWidth(width int) StoreOption {
	return func(s *URLStore) {
		if validHashWidth(width) {
			s.generator = NewHashGenerator(width)
		}
	}
}

func WithLogger(logger Logger) StoreOption {
	return func(s *URLStore) {
		s.logger = logger
	}
}

func WithClock(clock Clock) StoreOption {
	return func(s *URLStore) {
		s.clock = clock
	}
}

// URLStore is a concurrent bidirectional url <-> hash map.
//
// Records live in an arena indexed by slot id, the url and hash indexes only
// hold ids. A single RWMutex guards every field.
//
// While an async save streams the arena to its backend the arena and the
// indexes are frozen: mutations go to the staged structures and readers see
// live - stagedDeletes + stagedHash. The save goroutine merges the staged
// structures back into the arena when it drains them.
type URLStore struct {
	mu sync.RWMutex

	generator *HashGenerator
	logger    Logger
	clock     Clock

	records   []URLRecord // zero record marks a free slot
	free      []int
	urlIndex  map[string]int
	hashIndex map[string]int

	stagedHash    map[string]URLRecord // hash -> record added while snapshotting
	stagedURL     map[string]string    // url -> hash added while snapshotting
	stagedDeletes map[string]struct{}  // live hashes deleted while snapshotting

	// version counts mutations, savedVersion is the version the backend holds.
	version      uint64
	savedVersion uint64

	snapshotting bool // mutations are staged
	saving       bool // an async save goroutine is running
	asyncDone    chan struct{}
}

func NewURLStore(opts ...StoreOption) *URLStore {
	s := &URLStore{
		generator:     NewHashGenerator(DefaultHashWidth),
		logger:        VlogLogger{},
		clock:         systemClock{},
		urlIndex:      make(map[string]int),
		hashIndex:     make(map[string]int),
		stagedHash:    make(map[string]URLRecord),
		stagedURL:     make(map[string]string),
		stagedDeletes: make(map[string]struct{}),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// SetHashWidth changes the width of hashes generated from now on.
func (s *URLStore) SetHashWidth(width int) error {
	if !validHashWidth(width) {
		return ErrInvalidHashWidth
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.generator = NewHashGenerator(width)
	return nil
}

func (s *URLStore) GetHashWidth() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generator.Width()
}

// Add returns the hash of url, creating a record if url is not stored yet.
func (s *URLStore) Add(url string) (string, error) {
	if url == "" {
		return "", ErrEmptyKey
	}
	if strings.ContainsAny(url, "\r\n") {
		return "", ErrInvalidKey
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.urlIndex[url]; ok {
		rec := s.records[id]
		if s.snapshotting {
			if _, deleted := s.stagedDeletes[rec.Hash]; deleted {
				delete(s.stagedDeletes, rec.Hash)
				s.version++
			}
		}
		return rec.Hash, nil
	}

	if s.snapshotting {
		if hash, ok := s.stagedURL[url]; ok {
			return hash, nil
		}
	}

	// the check and the insert share this critical section
	hash, err := s.generator.Generate(url, len(s.hashIndex)+len(s.stagedHash), s.hashTakenLocked)
	if err != nil {
		s.logger.Errorf("generate hash for %s failed, width: %d, err: %v", url, s.generator.Width(), err)
		return "", err
	}

	rec := URLRecord{
		Hash:      hash,
		URL:       url,
		CreatedAt: s.clock.Now().Unix(),
	}

	if s.snapshotting {
		s.stagedHash[hash] = rec
		s.stagedURL[url] = hash
	} else {
		s.insertLocked(rec)
	}
	s.version++

	s.logger.Infof("add %s = %s", hash, url)
	return hash, nil
}

// Delete removes the record of url and reports whether one existed.
func (s *URLStore) Delete(url string) bool {
	_, ok := s.DeleteRecord(url)
	return ok
}

// DeleteRecord removes the record of url and returns it.
func (s *URLStore) DeleteRecord(url string) (URLRecord, bool) {
	if url == "" {
		return URLRecord{}, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.urlIndex[url]; ok {
		return s.deleteLiveLocked(id)
	}

	if s.snapshotting {
		if hash, ok := s.stagedURL[url]; ok {
			rec := s.stagedHash[hash]
			delete(s.stagedURL, url)
			delete(s.stagedHash, hash)
			s.version++
			s.logger.Infof("del url %s", url)
			return rec, true
		}
	}

	return URLRecord{}, false
}

// DeleteByHash removes the record of hash and reports whether one existed.
func (s *URLStore) DeleteByHash(hash string) bool {
	if hash == "" {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.hashIndex[hash]; ok {
		_, deleted := s.deleteLiveLocked(id)
		return deleted
	}

	if s.snapshotting {
		if rec, ok := s.stagedHash[hash]; ok {
			delete(s.stagedHash, hash)
			delete(s.stagedURL, rec.URL)
			s.version++
			s.logger.Infof("del hash %s", hash)
			return true
		}
	}

	return false
}

func (s *URLStore) deleteLiveLocked(id int) (URLRecord, bool) {
	rec := s.records[id]

	if s.snapshotting {
		if _, deleted := s.stagedDeletes[rec.Hash]; deleted {
			return URLRecord{}, false
		}
		s.stagedDeletes[rec.Hash] = struct{}{}
	} else {
		s.removeLocked(id)
	}
	s.version++

	s.logger.Infof("del %s = %s", rec.Hash, rec.URL)
	return rec, true
}

// Lookup resolves a hash (byHash) or a url to its record.
func (s *URLStore) Lookup(key string, byHash bool) (URLRecord, bool) {
	if key == "" {
		return URLRecord{}, false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	index := s.urlIndex
	if byHash {
		index = s.hashIndex
	}

	if id, ok := index[key]; ok {
		rec := s.records[id]
		if s.snapshotting {
			if _, deleted := s.stagedDeletes[rec.Hash]; deleted {
				return URLRecord{}, false
			}
		}
		return rec, true
	}

	if s.snapshotting {
		hash := key
		if !byHash {
			hash = s.stagedURL[key]
		}
		rec, ok := s.stagedHash[hash]
		return rec, ok
	}

	return URLRecord{}, false
}

// GetURL returns the url of hash, or "" when not found.
func (s *URLStore) GetURL(hash string) string {
	rec, _ := s.Lookup(hash, true)
	return rec.URL
}

// GetHash returns the hash of url, or "" when not found.
func (s *URLStore) GetHash(url string) string {
	rec, _ := s.Lookup(url, false)
	return rec.Hash
}

// Len returns the number of visible records.
func (s *URLStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.hashIndex) - len(s.stagedDeletes) + len(s.stagedHash)
}

// Records returns a copy of the visible records sorted by hash.
func (s *URLStore) Records() []URLRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]URLRecord, 0, len(s.hashIndex)+len(s.stagedHash))
	for _, rec := range s.records {
		if rec.IsZero() {
			continue
		}
		if _, deleted := s.stagedDeletes[rec.Hash]; deleted {
			continue
		}
		result = append(result, rec)
	}
	for _, rec := range s.stagedHash {
		result = append(result, rec)
	}

	sortRecords(result)
	return result
}

func sortRecords(records []URLRecord) {
	sort.Slice(records, func(i, j int) bool {
		return records[i].Hash < records[j].Hash
	})
}

// IsModified reports whether the store holds mutations no save has persisted yet.
func (s *URLStore) IsModified() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version != s.savedVersion
}

func (s *URLStore) IsAsyncSaving() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.saving
}

func (s *URLStore) hashTakenLocked(hash string) bool {
	if _, ok := s.hashIndex[hash]; ok {
		return true
	}
	_, ok := s.stagedHash[hash]
	return ok
}

func (s *URLStore) insertLocked(rec URLRecord) {
	var id int
	if n := len(s.free); n > 0 {
		id = s.free[n-1]
		s.free = s.free[:n-1]
		s.records[id] = rec
	} else {
		id = len(s.records)
		s.records = append(s.records, rec)
	}

	s.urlIndex[rec.URL] = id
	s.hashIndex[rec.Hash] = id
}

func (s *URLStore) removeLocked(id int) {
	rec := s.records[id]
	delete(s.urlIndex, rec.URL)
	delete(s.hashIndex, rec.Hash)
	s.records[id] = URLRecord{}
	s.free = append(s.free, id)
}

// putLocked inserts rec, first dropping any record holding its url or hash.
func (s *URLStore) putLocked(rec URLRecord) {
	if id, ok := s.urlIndex[rec.URL]; ok {
		s.removeLocked(id)
	}
	if id, ok := s.hashIndex[rec.Hash]; ok {
		s.removeLocked(id)
	}
	s.insertLocked(rec)
}
