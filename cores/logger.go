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

import "github.com/vogo/vogo/vlog"

// Logger is the logging dependency of the store and the router.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

// VlogLogger forwards to the process wide vlog logger.
type VlogLogger struct{}

func (VlogLogger) Debugf(format string, args ...any) { vlog.Debugf(format, args...) }
func (VlogLogger) Infof(format string, args ...any)  { vlog.Infof(format, args...) }
func (VlogLogger) Warnf(format string, args ...any)  { vlog.Warnf(format, args...) }
func (VlogLogger) Errorf(format string, args ...any) { vlog.Errorf(format, args...) }

// NopLogger discards everything.
type NopLogger struct{}

func (NopLogger) Debugf(string, ...any) {}
func (NopLogger) Infof(string, ...any)  {}
func (NopLogger) Warnf(string, ...any)  {}
func (NopLogger) Errorf(string, ...any) {}
