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

import "time"

// URLRecord is one url <-> hash mapping. A record is never mutated in place,
// deleting and adding again produces a new record.
type URLRecord struct {
	Hash      string `json:"hash" comment:"short hash"`
	URL       string `json:"url" comment:"original url"`
	CreatedAt int64  `json:"created_at" comment:"create time, unix seconds"`
}

func (r URLRecord) IsZero() bool {
	return r.Hash == "" && r.URL == ""
}

// Entry is one step of a persisted snapshot replay.
type Entry struct {
	Record  URLRecord
	Deleted bool // only Record.Hash is meaningful when set
}

// Clock provides the creation time of new records.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now()
}

// FixedClock always returns the same instant.
type FixedClock time.Time

func (c FixedClock) Now() time.Time {
	return time.Time(c)
}
