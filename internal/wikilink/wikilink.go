// Package wikilink extracts [[wikilink]] references from markdown content.
package wikilink

import (
	"regexp"
	"strings"
)

// linkRe matches [[title]] and its backslash-escaped form \[\[title\]\].
var linkRe = regexp.MustCompile(`\\?\[\\?\[([^\[\]]+?)\\?\]\\?\]`)

// Parse scans content for wikilinks and resolves them against the supplied
// set of known filenames. Titles are trimmed and suffixed with ".md";
// references that do not resolve are silently dropped. The result is
// deduplicated; empty or whitespace-only titles are skipped.
func Parse(content string, available map[string]struct{}) []string {
	var links []string
	seen := make(map[string]struct{})

	for _, match := range linkRe.FindAllStringSubmatch(content, -1) {
		title := strings.TrimSpace(match[1])
		if title == "" {
			continue
		}
		name := title + ".md"
		if _, ok := available[name]; !ok {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		links = append(links, name)
	}

	return links
}
