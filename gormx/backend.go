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

package gormx

import (
	"context"
	"errors"

	"github.com/vogo/vshorturl/cores"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const replayBatchSize = 500

var errWriterClosed = errors.New("snapshot writer closed")

// GormSnapshotBackend implements cores.Backend with GORM.
// A snapshot replaces the whole table inside one transaction.
type GormSnapshotBackend struct {
	db *gorm.DB
}

// NewGormSnapshotBackend creates a new GormSnapshotBackend, migrating the record table
func NewGormSnapshotBackend(db *gorm.DB) (*GormSnapshotBackend, error) {
	if err := db.AutoMigrate(&URLRecordModel{}); err != nil {
		return nil, err
	}

	return &GormSnapshotBackend{
		db: db,
	}, nil
}

// NewWriter implements cores.Backend.NewWriter
func (b *GormSnapshotBackend) NewWriter(ctx context.Context) (cores.SnapshotWriter, error) {
	// Begin a transaction
	tx := b.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}

	// The snapshot carries every record, drop the previous one
	if result := tx.Where("1 = 1").Delete(&URLRecordModel{}); result.Error != nil {
		tx.Rollback()
		return nil, result.Error
	}

	return &gormWriter{tx: tx}, nil
}

// Replay implements cores.Backend.Replay
func (b *GormSnapshotBackend) Replay(ctx context.Context, fn func(cores.Entry) error) error {
	fromID := int64(0)
	for {
		var models []URLRecordModel
		result := b.db.WithContext(ctx).
			Where("id > ?", fromID).
			Order("id ASC").
			Limit(replayBatchSize).
			Find(&models)

		if result.Error != nil {
			return result.Error
		}

		if len(models) == 0 {
			return nil
		}

		for i := range models {
			if err := fn(cores.Entry{Record: models[i].ToCore()}); err != nil {
				return err
			}
		}

		fromID = models[len(models)-1].ID
	}
}

type gormWriter struct {
	tx *gorm.DB
}

// upsertClause replaces the record holding the same hash
var upsertClause = clause.OnConflict{
	Columns:   []clause.Column{{Name: "hash"}},
	DoUpdates: clause.AssignmentColumns([]string{"url", "created_at"}),
}

func (w *gormWriter) Put(rec cores.URLRecord) error {
	if w.tx == nil {
		return errWriterClosed
	}
	return w.tx.Clauses(upsertClause).Create(FromCore(rec)).Error
}

func (w *gormWriter) Remove(hash string) error {
	if w.tx == nil {
		return errWriterClosed
	}
	return w.tx.Where("hash = ?", hash).Delete(&URLRecordModel{}).Error
}

func (w *gormWriter) Commit() error {
	if w.tx == nil {
		return errWriterClosed
	}
	tx := w.tx
	w.tx = nil
	return tx.Commit().Error
}

func (w *gormWriter) Abort() error {
	if w.tx == nil {
		return nil
	}
	tx := w.tx
	w.tx = nil
	return tx.Rollback().Error
}
