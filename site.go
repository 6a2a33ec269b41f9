// Copyright 2025 CloudWeGo Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package memcheck

import (
	"runtime"
	"strconv"
	"strings"
)

// Site identifies the source location that issued an allocation call:
// file name, enclosing function name, line number. It is captured at the
// original call site, never inside the registry, so the report points at
// the host's code.
type Site struct {
	File string
	Func string
	Line int
}

func (s Site) String() string {
	return s.File + ":" + s.Func + ":" + strconv.Itoa(s.Line)
}

// Caller returns the Site of the function skip frames above the caller.
// Caller(0) is the calling function itself.
func Caller(skip int) Site {
	pc, file, line, ok := runtime.Caller(skip + 1)
	if !ok {
		return Site{File: "???", Func: "???"}
	}
	s := Site{File: baseName(file), Func: "???", Line: line}
	if fn := runtime.FuncForPC(pc); fn != nil {
		s.Func = funcName(fn.Name())
	}
	return s
}

func baseName(file string) string {
	if i := strings.LastIndexByte(file, '/'); i >= 0 {
		return file[i+1:]
	}
	return file
}

// funcName strips the package path and receiver from a runtime function
// name, e.g. "github.com/x/y.(*T).Get" becomes "Get".
func funcName(name string) string {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[i+1:]
	}
	return name
}
