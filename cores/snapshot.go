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
	"context"
	"fmt"
	"sort"
)

// Backend persists snapshots of a URLStore.
type Backend interface {
	// NewWriter starts a snapshot replacing the persisted one on Commit.
	NewWriter(ctx context.Context) (SnapshotWriter, error)

	// Replay calls fn for every persisted entry in write order.
	Replay(ctx context.Context, fn func(Entry) error) error
}

// SnapshotWriter receives a full record set followed by incremental changes.
type SnapshotWriter interface {
	Put(rec URLRecord) error
	Remove(hash string) error
	Commit() error
	Abort() error
}

// SaveSync writes the store into dir/urls.txt.
func (s *URLStore) SaveSync(dir string) error {
	return s.SaveSyncTo(context.Background(), NewFileBackend(dir))
}

// SaveAsync starts a background save into dir/urls.txt.
func (s *URLStore) SaveAsync(dir string) bool {
	return s.SaveAsyncTo(NewFileBackend(dir))
}

// Load replays dir/urls.txt into the store. A missing file is not an error.
func (s *URLStore) Load(dir string) error {
	return s.LoadFrom(context.Background(), NewFileBackend(dir))
}

// SaveSyncTo writes every record to backend holding the exclusive lock.
func (s *URLStore) SaveSyncTo(ctx context.Context, backend Backend) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.saving {
		return ErrSaveInProgress
	}

	writer, err := backend.NewWriter(ctx)
	if err != nil {
		return fmt.Errorf("open snapshot: %w", err)
	}

	count := 0
	for _, rec := range s.records {
		if rec.IsZero() {
			continue
		}
		if err = writer.Put(rec); err != nil {
			_ = writer.Abort()
			return fmt.Errorf("write record %s: %w", rec.Hash, err)
		}
		count++
	}

	if err = writer.Commit(); err != nil {
		return fmt.Errorf("commit snapshot: %w", err)
	}

	s.savedVersion = s.version
	s.logger.Infof("sync save finished, records: %d", count)
	return nil
}

// SaveAsyncTo saves to backend on a background goroutine without blocking
// mutations for the duration of the write. It returns false when an async
// save is already running.
func (s *URLStore) SaveAsyncTo(backend Backend) bool {
	s.mu.Lock()
	if s.saving {
		s.mu.Unlock()
		return false
	}

	s.saving = true
	s.snapshotting = true
	frozen := s.records
	done := make(chan struct{})
	s.asyncDone = done
	s.mu.Unlock()

	go func() {
		defer close(done)
		s.runAsyncSave(backend, frozen)
	}()

	return true
}

func (s *URLStore) runAsyncSave(backend Backend, frozen []URLRecord) {
	ctx := context.Background()

	writer, err := backend.NewWriter(ctx)
	if err != nil {
		s.logger.Errorf("async save open snapshot failed, err: %v", err)
		writer = nil
	}

	// the arena is frozen until the first drain below, read it unlocked
	count := 0
	if writer != nil {
		for _, rec := range frozen {
			if rec.IsZero() {
				continue
			}
			if err = writer.Put(rec); err != nil {
				s.abortAsyncSave(writer, err)
				writer = nil
				break
			}
			count++
		}
	}

	var version uint64
	for {
		puts, removes, drainedVersion, finished := s.drainStaged()
		if finished {
			version = drainedVersion
			break
		}

		if writer == nil {
			continue
		}

		if err = writeChanges(writer, puts, removes); err != nil {
			s.abortAsyncSave(writer, err)
			writer = nil
			continue
		}
		count += len(puts) + len(removes)
	}

	if writer != nil {
		if err = writer.Commit(); err != nil {
			s.logger.Errorf("async save commit failed, err: %v", err)
			writer = nil
		}
	}

	s.mu.Lock()
	if writer != nil && version > s.savedVersion {
		s.savedVersion = version
	}
	s.saving = false
	s.mu.Unlock()

	if writer != nil {
		s.logger.Infof("async save finished, entries: %d", count)
	}
}

func (s *URLStore) abortAsyncSave(writer SnapshotWriter, err error) {
	s.logger.Errorf("async save write failed, err: %v", err)
	if abortErr := writer.Abort(); abortErr != nil {
		s.logger.Warnf("async save abort failed, err: %v", abortErr)
	}
}

// drainStaged merges the staged changes into the arena and hands them to
// the caller. When nothing was staged the store leaves snapshot mode and the
// current version is returned with finished set.
func (s *URLStore) drainStaged() (puts []URLRecord, removes []string, version uint64, finished bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.stagedHash) == 0 && len(s.stagedDeletes) == 0 {
		s.snapshotting = false
		return nil, nil, s.version, true
	}

	for hash := range s.stagedDeletes {
		if id, ok := s.hashIndex[hash]; ok {
			s.removeLocked(id)
		}
		removes = append(removes, hash)
	}

	for _, rec := range s.stagedHash {
		s.insertLocked(rec)
		puts = append(puts, rec)
	}

	s.stagedHash = make(map[string]URLRecord)
	s.stagedURL = make(map[string]string)
	s.stagedDeletes = make(map[string]struct{})

	sortRecords(puts)
	sort.Strings(removes)

	return puts, removes, 0, false
}

func writeChanges(writer SnapshotWriter, puts []URLRecord, removes []string) error {
	for _, rec := range puts {
		if err := writer.Put(rec); err != nil {
			return fmt.Errorf("write record %s: %w", rec.Hash, err)
		}
	}
	for _, hash := range removes {
		if err := writer.Remove(hash); err != nil {
			return fmt.Errorf("write deletion %s: %w", hash, err)
		}
	}
	return nil
}

// WaitAsyncSave blocks until the running async save, if any, has finished.
func (s *URLStore) WaitAsyncSave(ctx context.Context) error {
	s.mu.RLock()
	done := s.asyncDone
	s.mu.RUnlock()

	if done == nil {
		return nil
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close waits for the running async save. The store stays usable.
func (s *URLStore) Close(ctx context.Context) error {
	return s.WaitAsyncSave(ctx)
}

// LoadFrom replays backend into the store holding the exclusive lock.
func (s *URLStore) LoadFrom(ctx context.Context, backend Backend) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.saving {
		return ErrSaveInProgress
	}

	loaded, deleted := 0, 0
	err := backend.Replay(ctx, func(e Entry) error {
		if e.Deleted {
			if id, ok := s.hashIndex[e.Record.Hash]; ok {
				s.removeLocked(id)
				deleted++
			}
			return nil
		}

		if e.Record.Hash == "" || e.Record.URL == "" {
			return nil
		}

		s.putLocked(e.Record)
		loaded++
		return nil
	})
	if err != nil {
		return fmt.Errorf("load records: %w", err)
	}

	s.logger.Infof("load finished, records: %d, deleted: %d, total: %d", loaded, deleted, len(s.hashIndex))
	return nil
}
