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

package server

import (
	"errors"
	"fmt"
	"net/url"
)

const maxURLLength = 2048

var (
	errURLEmpty   = errors.New("url is empty")
	errURLTooLong = fmt.Errorf("url is longer than %d bytes", maxURLLength)
	errURLScheme  = errors.New("url scheme is not http or https")
	errURLHost    = errors.New("url has no host")
)

// checkURL accepts absolute http(s) urls only. The error describes the reason
// and is sent back to the client.
func checkURL(raw string) error {
	switch {
	case raw == "":
		return errURLEmpty
	case len(raw) > maxURLLength:
		return errURLTooLong
	}

	u, err := url.Parse(raw)
	if err != nil {
		// *url.Error repeats the whole url, keep the cause only
		var ue *url.Error
		if errors.As(err, &ue) {
			err = ue.Err
		}
		return fmt.Errorf("url is malformed: %w", err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return errURLScheme
	}
	if u.Host == "" {
		return errURLHost
	}

	return nil
}
