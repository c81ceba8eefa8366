package frame

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Printf returns a formatter applying a single-verb fmt format to each cell.
// Numeric verbs parse the cell first: %f %e %g (and upper-case forms) as
// float64, %d %x %X %o %b as an integer (floats are truncated). %s %q %v
// use the raw string. Empty cells are left as they are.
func Printf(format string) (CellFormatter, error) {
	verb, err := singleVerb(format)
	if err != nil {
		return nil, err
	}

	switch verb {
	case 'f', 'F', 'e', 'E', 'g', 'G':
		return func(cell string) (string, error) {
			if strings.TrimSpace(cell) == "" {
				return cell, nil
			}
			v, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
			if err != nil {
				return "", fmt.Errorf("not a number: %q", cell)
			}
			return fmt.Sprintf(format, v), nil
		}, nil
	case 'd', 'x', 'X', 'o', 'b':
		return func(cell string) (string, error) {
			s := strings.TrimSpace(cell)
			if s == "" {
				return cell, nil
			}
			if n, err := strconv.ParseInt(s, 10, 64); err == nil {
				return fmt.Sprintf(format, n), nil
			}
			v, err := strconv.ParseFloat(s, 64)
			if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
				return "", fmt.Errorf("not an integer: %q", cell)
			}
			return fmt.Sprintf(format, int64(v)), nil
		}, nil
	default:
		return func(cell string) (string, error) {
			return fmt.Sprintf(format, cell), nil
		}, nil
	}
}

// singleVerb returns the verb of the only formatting directive in format.
func singleVerb(format string) (rune, error) {
	var verb rune
	count := 0
	for i := 0; i < len(format); i++ {
		if format[i] != '%' {
			continue
		}
		i++
		if i < len(format) && format[i] == '%' {
			continue
		}
		for i < len(format) && strings.IndexByte("+-# 0123456789.", format[i]) >= 0 {
			i++
		}
		if i >= len(format) {
			return 0, fmt.Errorf("format %q ends inside a directive", format)
		}
		verb = rune(format[i])
		count++
	}

	if count != 1 {
		return 0, fmt.Errorf("format %q must contain exactly one directive, found %d", format, count)
	}
	if !strings.ContainsRune("fFeEgGdxXobsqv", verb) {
		return 0, fmt.Errorf("format %q: unsupported verb %%%c", format, verb)
	}
	return verb, nil
}
