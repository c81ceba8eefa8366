// Package dbg prints values together with the source text of the call that
// printed them:
//
//	dbg.Print(user.ID, len(items))
//	// main.go:42: user.ID, len(items) = (int)7, (int)3
package dbg

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/davecgh/go-spew/spew"
)

var dumper = spew.ConfigState{
	Indent:                  " ",
	DisablePointerAddresses: true,
	DisableCapacities:       true,
	SortKeys:                true,
}

// Output receives Print lines. Tests may swap it.
var Output io.Writer = os.Stderr

// Print writes the caller's position, argument source and values to Output.
func Print(values ...any) {
	fprint(Output, 2, values)
}

// Fprint is Print writing to w.
func Fprint(w io.Writer, values ...any) {
	fprint(w, 2, values)
}

// Value prints v like Print and returns it, so it can wrap an expression.
func Value[T any](v T) T {
	fprint(Output, 2, []any{v})
	return v
}

func fprint(w io.Writer, skip int, values []any) {
	defer func() { _ = recover() }()

	expr := "?"
	pos := "?"
	if _, file, line, ok := runtime.Caller(skip); ok {
		pos = fmt.Sprintf("%s:%d", filepath.Base(file), line)
		if src := callArgs(sourceLine(file, line)); src != "" {
			expr = src
		}
	}

	rendered := make([]string, len(values))
	for i, v := range values {
		rendered[i] = dumper.Sprintf("%#v", v)
	}
	fmt.Fprintf(w, "%s: %s = %s\n", pos, expr, strings.Join(rendered, ", "))
}

var (
	cacheMu sync.Mutex
	cache   = map[string][]string{}
)

func sourceLine(file string, line int) string {
	cacheMu.Lock()
	defer cacheMu.Unlock()

	lines, ok := cache[file]
	if !ok {
		f, err := os.Open(file)
		if err != nil {
			cache[file] = nil
			return ""
		}
		sc := bufio.NewScanner(f)
		for sc.Scan() {
			lines = append(lines, sc.Text())
		}
		f.Close()
		cache[file] = lines
	}
	if line < 1 || line > len(lines) {
		return ""
	}
	return lines[line-1]
}

// callArgs extracts the argument text of the first dbg call on a line.
func callArgs(line string) string {
	start := -1
	for _, name := range []string{"Print(", "Fprint(", "Value("} {
		if i := strings.Index(line, name); i >= 0 && (start < 0 || i < start) {
			start = i + len(name)
		}
	}
	if start < 0 {
		return ""
	}

	depth := 1
	inString := byte(0)
	for i := start; i < len(line); i++ {
		c := line[i]
		switch {
		case inString != 0:
			if c == '\\' && inString != '`' {
				i++
			} else if c == inString {
				inString = 0
			}
		case c == '"' || c == '\'' || c == '`':
			inString = c
		case c == '(' || c == '[' || c == '{':
			depth++
		case c == ')' || c == ']' || c == '}':
			depth--
			if depth == 0 {
				return strings.TrimSpace(line[start:i])
			}
		}
	}
	return ""
}
