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

import "context"

// URLCache caches hash -> url resolutions in front of the store.
// Implementations expire entries so a lost invalidation heals.
type URLCache interface {
	Get(ctx context.Context, hash string) (string, bool)
	Add(ctx context.Context, hash string, url string) error
	Remove(ctx context.Context, hash string) error
}

// NopCache caches nothing.
type NopCache struct{}

func (NopCache) Get(context.Context, string) (string, bool) { return "", false }
func (NopCache) Add(context.Context, string, string) error  { return nil }
func (NopCache) Remove(context.Context, string) error       { return nil }
