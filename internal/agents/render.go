package agents

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ReadSnippets concatenates the shared snippet files, each trimmed, separated
// by a blank line. Paths are relative to root.
func ReadSnippets(root string, paths []string) (string, error) {
	parts := make([]string, 0, len(paths))
	for _, rel := range paths {
		path := rel
		if !filepath.IsAbs(path) {
			path = filepath.Join(root, rel)
		}
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			return "", fmt.Errorf("snippet file not found: %s", rel)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("reading snippet %s: %w", rel, err)
		}
		parts = append(parts, strings.TrimSpace(string(data)))
	}
	return strings.TrimSpace(strings.Join(parts, "\n\n")), nil
}

// Render produces the file content for one agent: YAML-style front matter,
// the heading, the shared snippet and the agent's own sections.
func Render(a Agent, sharedSnippet string) string {
	var fm strings.Builder
	fm.WriteString("---\n")
	fmt.Fprintf(&fm, "# %s\n", a.Title)
	fmt.Fprintf(&fm, "# %s\n", a.Description)
	fm.WriteString("context:\n")
	fm.WriteString("  include:\n")
	for _, entry := range a.ContextInclude {
		fmt.Fprintf(&fm, "    - %s\n", entry)
	}
	fmt.Fprintf(&fm, "inherits_from: \"%s\"\n", a.InheritsFrom)
	fm.WriteString("---")

	body := []string{"# " + a.Heading}
	if sharedSnippet != "" {
		body = append(body, "", sharedSnippet)
	}
	for _, s := range a.SpecificSections {
		heading := strings.TrimSpace(s.Heading)
		text := strings.TrimRight(s.Body, " \t\r\n")
		if heading == "" || text == "" {
			continue
		}
		body = append(body, "", "## "+heading, "", text)
	}

	return strings.TrimRight(fm.String(), " \t\r\n") + "\n\n" + strings.TrimSpace(strings.Join(body, "\n")) + "\n"
}
