package security

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// KeyFlags maps group:artifact to an operator-supplied annotation that is
// appended to the trust line. Nothing else is inferred from it.
type KeyFlags map[string]string

// LoadKeyFlags reads group:artifact=flag lines. Blank lines and lines starting
// with # are ignored. An empty path yields no flags.
func LoadKeyFlags(path string) (KeyFlags, error) {
	flags := KeyFlags{}
	if path == "" {
		return flags, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, configError("reading key flags %s: %v", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		key, value = strings.TrimSpace(key), strings.TrimSpace(value)
		if !ok || key == "" || value == "" {
			return nil, configError("%s:%d: expected group:artifact=flag, got %q", path, lineNo, line)
		}
		flags[key] = value
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading key flags %s: %w", path, err)
	}
	return flags, nil
}

// Lookup returns the flag for key, if any.
func (k KeyFlags) Lookup(key string) string {
	return k[key]
}
