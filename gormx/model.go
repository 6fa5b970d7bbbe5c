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
	"github.com/vogo/vshorturl/cores"
)

var recordTableName = "short_url_records"

func SetRecordTableName(name string) {
	recordTableName = name
}

// URLRecordModel is the GORM model for url records
type URLRecordModel struct {
	ID        int64  `json:"id" gorm:"primaryKey;autoIncrement" comment:"ID"`
	Hash      string `json:"hash" gorm:"uniqueIndex;size:64" comment:"short hash"`
	URL       string `json:"url" gorm:"size:2048" comment:"original url"`
	CreatedAt int64  `json:"created_at" gorm:"column:created_at;autoCreateTime:false" comment:"create time, unix seconds"`
}

// TableName returns the table name for the URLRecordModel
func (URLRecordModel) TableName() string {
	return recordTableName
}

// ToCore converts a URLRecordModel to a cores.URLRecord
func (m *URLRecordModel) ToCore() cores.URLRecord {
	return cores.URLRecord{
		Hash:      m.Hash,
		URL:       m.URL,
		CreatedAt: m.CreatedAt,
	}
}

// FromCore converts a cores.URLRecord to a URLRecordModel
func FromCore(rec cores.URLRecord) *URLRecordModel {
	return &URLRecordModel{
		Hash:      rec.Hash,
		URL:       rec.URL,
		CreatedAt: rec.CreatedAt,
	}
}
