package maven

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrUnparseableLine marks a line that looks like a coordinate but is not one.
var ErrUnparseableLine = errors.New("unparseable dependency line")

// ParseDependencyList extracts coordinates from dependency:list output, either
// the -DoutputFile form or console output with [INFO] prefixes. Informational
// lines are ignored. Lines of the form group:artifact:packaging:version:scope
// and group:artifact:packaging:classifier:version:scope are accepted; any
// other colon-separated token fails the whole parse with ErrUnparseableLine.
func ParseDependencyList(r io.Reader) ([]Coordinate, error) {
	var coords []Coordinate

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		c, ok, err := parseLine(scanner.Text())
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		if ok {
			coords = append(coords, c)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading dependency list: %w", err)
	}
	return coords, nil
}

func parseLine(raw string) (Coordinate, bool, error) {
	line := strings.TrimSpace(raw)
	if rest, found := strings.CutPrefix(line, "[INFO]"); found {
		line = strings.TrimSpace(rest)
	} else if strings.HasPrefix(line, "[") {
		// [WARNING], [ERROR] and friends never carry coordinates
		return Coordinate{}, false, nil
	}

	fields := strings.Fields(line)
	if len(fields) == 0 || strings.Count(fields[0], ":") < 2 {
		return Coordinate{}, false, nil
	}

	token := fields[0]
	rest := strings.TrimSpace(strings.TrimPrefix(line, token))
	if before, _, found := strings.Cut(rest, "--"); found {
		rest = strings.TrimSpace(before)
	}
	rest = strings.TrimSpace(strings.TrimPrefix(rest, "(optional)"))
	if rest != "" {
		return Coordinate{}, false, fmt.Errorf("%w: %q", ErrUnparseableLine, strings.TrimSpace(raw))
	}

	parts := strings.Split(token, ":")
	for _, p := range parts {
		if p == "" {
			return Coordinate{}, false, fmt.Errorf("%w: %q", ErrUnparseableLine, strings.TrimSpace(raw))
		}
	}

	switch len(parts) {
	case 5:
		return Coordinate{
			Group:     parts[0],
			Artifact:  parts[1],
			Packaging: parts[2],
			Version:   parts[3],
			Scope:     parts[4],
		}, true, nil
	case 6:
		return Coordinate{
			Group:      parts[0],
			Artifact:   parts[1],
			Packaging:  parts[2],
			Classifier: parts[3],
			Version:    parts[4],
			Scope:      parts[5],
		}, true, nil
	default:
		return Coordinate{}, false, fmt.Errorf("%w: %q", ErrUnparseableLine, strings.TrimSpace(raw))
	}
}
