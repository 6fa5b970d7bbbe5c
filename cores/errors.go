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

import "errors"

var (
	// ErrEmptyKey is returned when an empty url or hash is passed to the store.
	ErrEmptyKey = errors.New("empty url or hash")

	// ErrInvalidKey is returned for a url containing a line break, which the file format cannot hold.
	ErrInvalidKey = errors.New("url contains a line break")

	// ErrHashExhausted is returned when no free hash of the configured width is left.
	// It is a configuration problem, the hash width must be increased.
	ErrHashExhausted = errors.New("hash space exhausted, please use a wider hash")

	// ErrInvalidHashWidth is returned for a hash width outside [MinHashWidth, MaxHashWidth].
	ErrInvalidHashWidth = errors.New("invalid hash width")

	// ErrSaveInProgress is returned when an operation conflicts with an in-flight async save.
	ErrSaveInProgress = errors.New("async save in progress")
)
