package release

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
)

// NextSnapshot increments the last dot-separated component of version and
// appends -SNAPSHOT: 1.2.3 becomes 1.2.4-SNAPSHOT.
func NextSnapshot(version string) (string, error) {
	version = strings.TrimSpace(version)
	if version == "" {
		return "", fmt.Errorf("invalid version string")
	}
	parts := strings.Split(version, ".")
	last, err := strconv.Atoi(parts[len(parts)-1])
	if err != nil || last < 0 {
		return "", fmt.Errorf("unable to increment version component in '%s'", version)
	}
	parts[len(parts)-1] = strconv.Itoa(last + 1)
	return strings.Join(parts, ".") + "-SNAPSHOT", nil
}

var snapshotVersion = regexp.MustCompile(`<version>[^<]*-SNAPSHOT</version>`)

// ReplaceSnapshotVersion rewrites the first -SNAPSHOT <version> element in a
// pom to version. It reports whether anything changed.
func ReplaceSnapshotVersion(pom []byte, version string) ([]byte, bool) {
	return replaceFirst(pom, snapshotVersion, version)
}

// ReplaceVersion rewrites the first <version>from</version> element to to.
func ReplaceVersion(pom []byte, from, to string) ([]byte, bool) {
	re := regexp.MustCompile(`<version>` + regexp.QuoteMeta(from) + `</version>`)
	return replaceFirst(pom, re, to)
}

func replaceFirst(pom []byte, re *regexp.Regexp, version string) ([]byte, bool) {
	loc := re.FindIndex(pom)
	if loc == nil {
		return pom, false
	}
	out := make([]byte, 0, len(pom)+len(version))
	out = append(out, pom[:loc[0]]...)
	out = append(out, "<version>"+version+"</version>"...)
	out = append(out, pom[loc[1]:]...)
	return out, true
}

func rewritePOM(path string, rewrite func([]byte) ([]byte, bool)) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		return false, fmt.Errorf("reading %s: %w", path, err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return false, fmt.Errorf("reading %s: %w", path, err)
	}
	updated, changed := rewrite(data)
	if !changed {
		return false, nil
	}
	if err := os.WriteFile(path, updated, info.Mode().Perm()); err != nil {
		return false, fmt.Errorf("writing %s: %w", path, err)
	}
	return true, nil
}
