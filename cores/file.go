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
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	RecordFileName = "urls.txt"

	// a deletion is persisted as "0 ----\n<hash>\n"
	deletionTimestamp = 0
	deletionMarker    = "----"

	maxRecordLineSize = 1 << 20
)

// FileBackend persists snapshots as two line records in dir/urls.txt:
//
//	<unix timestamp> <hash>
//	<url>
type FileBackend struct {
	dir string
}

func NewFileBackend(dir string) *FileBackend {
	return &FileBackend{dir: dir}
}

func (b *FileBackend) Path() string {
	return filepath.Join(b.dir, RecordFileName)
}

// NewWriter implements Backend.NewWriter. The snapshot is written to a
// temporary file renamed over urls.txt on Commit.
func (b *FileBackend) NewWriter(_ context.Context) (SnapshotWriter, error) {
	if err := os.MkdirAll(b.dir, 0o755); err != nil {
		return nil, err
	}

	tmpPath := b.Path() + ".tmp"
	f, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, err
	}

	return &fileWriter{
		file:    f,
		buf:     bufio.NewWriter(f),
		tmpPath: tmpPath,
		path:    b.Path(),
	}, nil
}

// Replay implements Backend.Replay. A missing directory or file replays nothing.
func (b *FileBackend) Replay(ctx context.Context, fn func(Entry) error) error {
	f, err := os.Open(b.Path())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	defer f.Close()

	return ReadEntries(ctx, f, fn)
}

// ReadEntries parses the record file format from r.
func ReadEntries(ctx context.Context, r io.Reader, fn func(Entry) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxRecordLineSize)

	lineNo := 0
	for {
		header, ok := nextLine(scanner, &lineNo)
		if !ok {
			break
		}

		if err := ctx.Err(); err != nil {
			return err
		}

		timestamp, hash, err := parseHeader(header)
		if err != nil {
			return fmt.Errorf("line %d: %w", lineNo, err)
		}

		value, ok := nextLine(scanner, &lineNo)
		if !ok {
			if err = scanner.Err(); err != nil {
				return err
			}
			return fmt.Errorf("line %d: missing url for hash %s", lineNo, hash)
		}

		var entry Entry
		if timestamp == deletionTimestamp && hash == deletionMarker {
			entry = Entry{Record: URLRecord{Hash: value}, Deleted: true}
		} else {
			entry = Entry{Record: URLRecord{Hash: hash, URL: value, CreatedAt: timestamp}}
		}

		if err = fn(entry); err != nil {
			return err
		}
	}

	return scanner.Err()
}

func nextLine(scanner *bufio.Scanner, lineNo *int) (string, bool) {
	for scanner.Scan() {
		*lineNo++
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		return line, true
	}
	return "", false
}

func parseHeader(line string) (int64, string, error) {
	fields := strings.Fields(line)
	if len(fields) != 2 {
		return 0, "", fmt.Errorf("invalid record header %q", line)
	}

	timestamp, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return 0, "", fmt.Errorf("invalid record timestamp %q", fields[0])
	}

	return timestamp, fields[1], nil
}

type fileWriter struct {
	file    *os.File
	buf     *bufio.Writer
	tmpPath string
	path    string
}

func (w *fileWriter) Put(rec URLRecord) error {
	return w.writeEntry(rec.CreatedAt, rec.Hash, rec.URL)
}

func (w *fileWriter) Remove(hash string) error {
	return w.writeEntry(deletionTimestamp, deletionMarker, hash)
}

func (w *fileWriter) writeEntry(timestamp int64, hash, value string) error {
	if strings.ContainsAny(hash, " \r\n") || strings.ContainsAny(value, "\r\n") {
		return fmt.Errorf("%w: %q", ErrInvalidKey, value)
	}
	if _, err := w.buf.WriteString(strconv.FormatInt(timestamp, 10)); err != nil {
		return err
	}
	if _, err := w.buf.WriteString(" " + hash + "\n" + value + "\n"); err != nil {
		return err
	}
	return nil
}

func (w *fileWriter) Commit() error {
	if err := w.buf.Flush(); err != nil {
		_ = w.Abort()
		return err
	}
	if err := w.file.Sync(); err != nil {
		_ = w.Abort()
		return err
	}
	if err := w.file.Close(); err != nil {
		_ = os.Remove(w.tmpPath)
		return err
	}
	return os.Rename(w.tmpPath, w.path)
}

func (w *fileWriter) Abort() error {
	_ = w.file.Close()
	return os.Remove(w.tmpPath)
}
