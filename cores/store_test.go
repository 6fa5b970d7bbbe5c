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
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testTime = time.Unix(1700000000, 0)

func newTestStore(opts ...StoreOption) *URLStore {
	opts = append([]StoreOption{WithLogger(NopLogger{}), WithClock(FixedClock(testTime))}, opts...)
	return NewURLStore(opts...)
}

// assertBijection checks that every visible record resolves both ways.
func assertBijection(t *testing.T, s *URLStore) {
	t.Helper()

	records := s.Records()
	assert.Len(t, records, s.Len())

	hashes := make(map[string]bool, len(records))
	urls := make(map[string]bool, len(records))
	for _, rec := range records {
		assert.False(t, hashes[rec.Hash], "duplicate hash %s", rec.Hash)
		assert.False(t, urls[rec.URL], "duplicate url %s", rec.URL)
		hashes[rec.Hash] = true
		urls[rec.URL] = true

		assert.Equal(t, rec.URL, s.GetURL(rec.Hash))
		assert.Equal(t, rec.Hash, s.GetHash(rec.URL))
	}
}

func TestAddAndLookup(t *testing.T) {
	s := newTestStore(WithHashWidth(6))

	hash, err := s.Add("https://example.com")
	require.NoError(t, err)
	assert.Equal(t, NewHashGenerator(6).Candidate("https://example.com"), hash)
	assert.True(t, s.IsModified())

	again, err := s.Add("https://example.com")
	require.NoError(t, err)
	assert.Equal(t, hash, again)
	assert.Equal(t, 1, s.Len())

	assert.Equal(t, "https://example.com", s.GetURL(hash))
	assert.Equal(t, hash, s.GetHash("https://example.com"))

	rec, ok := s.Lookup(hash, true)
	require.True(t, ok)
	assert.Equal(t, URLRecord{Hash: hash, URL: "https://example.com", CreatedAt: testTime.Unix()}, rec)

	rec, ok = s.Lookup("https://example.com", false)
	require.True(t, ok)
	assert.Equal(t, hash, rec.Hash)

	// a url is not a hash and the other way round
	_, ok = s.Lookup("https://example.com", true)
	assert.False(t, ok)
	_, ok = s.Lookup(hash, false)
	assert.False(t, ok)
}

func TestEmptyKeys(t *testing.T) {
	s := newTestStore()

	_, err := s.Add("")
	assert.ErrorIs(t, err, ErrEmptyKey)
	assert.False(t, s.Delete(""))
	assert.False(t, s.DeleteByHash(""))
	assert.Equal(t, "", s.GetURL(""))
	assert.Equal(t, "", s.GetHash(""))
	assert.False(t, s.IsModified())
}

func TestDelete(t *testing.T) {
	s := newTestStore()

	hashA, err := s.Add("https://a.example.com")
	require.NoError(t, err)
	hashB, err := s.Add("https://b.example.com")
	require.NoError(t, err)

	assert.True(t, s.Delete("https://a.example.com"))
	assert.False(t, s.Delete("https://a.example.com"))
	assert.Equal(t, "", s.GetURL(hashA))
	assert.Equal(t, "", s.GetHash("https://a.example.com"))

	assert.True(t, s.DeleteByHash(hashB))
	assert.False(t, s.DeleteByHash(hashB))
	assert.Equal(t, 0, s.Len())

	assert.False(t, s.Delete("https://missing.example.com"))
	assert.False(t, s.DeleteByHash("missing"))

	// freed slots are reused
	_, err = s.Add("https://c.example.com")
	require.NoError(t, err)
	assert.Len(t, s.records, 2)
	assertBijection(t, s)
}

func TestDeleteRecord(t *testing.T) {
	s := newTestStore()

	hash, err := s.Add("https://a.example.com")
	require.NoError(t, err)

	rec, ok := s.DeleteRecord("https://a.example.com")
	require.True(t, ok)
	assert.Equal(t, URLRecord{Hash: hash, URL: "https://a.example.com", CreatedAt: testTime.Unix()}, rec)

	rec, ok = s.DeleteRecord("https://a.example.com")
	assert.False(t, ok)
	assert.Equal(t, URLRecord{}, rec)

	_, ok = s.DeleteRecord("")
	assert.False(t, ok)
}

func TestAddRejectsLineBreaks(t *testing.T) {
	s := newTestStore()

	tests := []struct {
		name string
		url  string
	}{
		{"newline", "https://a.example.com/\nhttps://b.example.com"},
		{"carriage return", "https://a.example.com/\r"},
		{"crlf", "https://a.example.com/\r\n0 ----"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hash, err := s.Add(tt.url)
			assert.ErrorIs(t, err, ErrInvalidKey)
			assert.Equal(t, "", hash)
			assert.Equal(t, "", s.GetHash(tt.url))
		})
	}

	assert.Equal(t, 0, s.Len())
	assert.False(t, s.IsModified())

	// the file written after rejected adds replays cleanly
	dir := t.TempDir()
	hash, err := s.Add("https://c.example.com/?q=a%0Ab")
	require.NoError(t, err)
	require.NoError(t, s.SaveSync(dir))

	loaded := newTestStore()
	require.NoError(t, loaded.Load(dir))
	assert.Equal(t, "https://c.example.com/?q=a%0Ab", loaded.GetURL(hash))
	assert.Equal(t, 1, loaded.Len())
}

func TestHashWidth(t *testing.T) {
	s := newTestStore()
	assert.Equal(t, DefaultHashWidth, s.GetHashWidth())

	old, err := s.Add("https://example.com/old")
	require.NoError(t, err)
	assert.Len(t, old, DefaultHashWidth)

	assert.ErrorIs(t, s.SetHashWidth(0), ErrInvalidHashWidth)
	assert.ErrorIs(t, s.SetHashWidth(MaxHashWidth+1), ErrInvalidHashWidth)
	require.NoError(t, s.SetHashWidth(4))
	assert.Equal(t, 4, s.GetHashWidth())

	fresh, err := s.Add("https://example.com/new")
	require.NoError(t, err)
	assert.Len(t, fresh, 4)

	// existing records keep their hash
	assert.Equal(t, old, s.GetHash("https://example.com/old"))

	// invalid option widths are ignored
	assert.Equal(t, DefaultHashWidth, newTestStore(WithHashWidth(100)).GetHashWidth())
}

func TestHashCollision(t *testing.T) {
	s := newTestStore(WithHashWidth(1))

	for i := 0; s.Len() < 16; i++ {
		_, err := s.Add(fmt.Sprintf("https://example.com/%d", i))
		require.NoError(t, err)
	}
	assertBijection(t, s)

	_, err := s.Add("https://example.com/one-too-many")
	assert.ErrorIs(t, err, ErrHashExhausted)
	assert.Equal(t, 16, s.Len())
}

func TestRecordsSorted(t *testing.T) {
	s := newTestStore()
	for i := 0; i < 20; i++ {
		_, err := s.Add(fmt.Sprintf("https://example.com/%d", i))
		require.NoError(t, err)
	}

	records := s.Records()
	require.Len(t, records, 20)
	for i := 1; i < len(records); i++ {
		assert.Less(t, records[i-1].Hash, records[i].Hash)
	}
}

func TestConcurrentAccess(t *testing.T) {
	s := newTestStore(WithHashWidth(6))

	const workers = 8
	const perWorker = 200

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				url := fmt.Sprintf("https://example.com/%d", i)
				hash, err := s.Add(url)
				if !assert.NoError(t, err) {
					return
				}
				_ = s.GetURL(hash)
				if i%10 == w {
					s.Delete(fmt.Sprintf("https://example.com/%d", i/2))
				}
			}
		}(w)
	}
	wg.Wait()

	assertBijection(t, s)
}

func BenchmarkAdd(b *testing.B) {
	s := newTestStore()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = s.Add(fmt.Sprintf("https://example.com/%d", i))
	}
}

func BenchmarkGetURL(b *testing.B) {
	s := newTestStore()
	hash, _ := s.Add("https://example.com")

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_ = s.GetURL(hash)
		}
	})
}
