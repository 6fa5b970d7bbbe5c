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
	"encoding/hex"

	"github.com/zeebo/blake3"
)

const (
	MinHashWidth     = 1
	MaxHashWidth     = 64 // hex length of a 256 bit digest
	DefaultHashWidth = 12

	// hashFiller is appended to the input when a candidate hash is taken.
	hashFiller = ' '

	maxHashProbes = 4096
)

// HashGenerator derives short hashes from the url content.
type HashGenerator struct {
	width int
}

func NewHashGenerator(width int) *HashGenerator {
	return &HashGenerator{width: width}
}

func (g *HashGenerator) Width() int {
	return g.width
}

// Candidate returns the truncated hex digest of input.
func (g *HashGenerator) Candidate(input string) string {
	sum := blake3.Sum256([]byte(input))
	return hex.EncodeToString(sum[:])[:g.width]
}

// Generate returns the first candidate for url not reported by taken,
// appending a filler to the input after every collision.
// occupied is the number of hashes currently taken, used to detect a full key space early.
func (g *HashGenerator) Generate(url string, occupied int, taken func(hash string) bool) (string, error) {
	if capacity, ok := g.capacity(); ok && int64(occupied) >= capacity {
		return "", ErrHashExhausted
	}

	input := url
	for i := 0; i < maxHashProbes; i++ {
		candidate := g.Candidate(input)
		if !taken(candidate) {
			return candidate, nil
		}
		input += string(hashFiller)
	}

	return "", ErrHashExhausted
}

// capacity returns 16^width when it fits in an int64.
func (g *HashGenerator) capacity() (int64, bool) {
	if g.width >= 15 {
		return 0, false
	}
	return int64(1) << (4 * g.width), true
}

func validHashWidth(width int) bool {
	return width >= MinHashWidth && width <= MaxHashWidth
}
