// Package fn names task handlers for logs.
package fn

import (
	"reflect"
	"runtime"
	"strings"
)

// Name returns the package qualified name of a handler function, e.g. "payments.Service.Charge" for
// a method value or "cli.echo" for a closure returned by echo. Non-function values yield "".
func Name(f any) string {
	v := reflect.ValueOf(f)
	if v.Kind() != reflect.Func || v.IsNil() {
		return ""
	}

	rf := runtime.FuncForPC(v.Pointer())
	if rf == nil {
		return ""
	}

	full := rf.Name()
	if i := strings.LastIndex(full, "/"); i >= 0 {
		full = full[i+1:]
	}
	full = strings.TrimSuffix(full, "-fm")

	parts := strings.Split(full, ".")
	name := parts[:0]
	for _, p := range parts {
		if generated(p) {
			continue
		}
		name = append(name, strings.Trim(p, "(*)"))
	}

	return strings.Join(name, ".")
}

// generated reports whether p is a compiler generated closure segment such as "func2", "1" or "glob".
func generated(p string) bool {
	if p == "" || p == "glob" {
		return true
	}

	digits := strings.TrimPrefix(p, "func")
	if digits == "" {
		return false
	}

	for _, r := range digits {
		if r < '0' || r > '9' {
			return false
		}
	}

	return true
}
