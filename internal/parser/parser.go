// Package parser extracts frontmatter, wikilinks, tags and tasks from Markdown notes.
package parser

import (
	"bytes"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

var (
	wikilinkRe = regexp.MustCompile(`\[\[([^\[\]]*?)\]\]`)
	tagRe      = regexp.MustCompile(`(?:^|\s)#([A-Za-z][A-Za-z0-9_/-]*)`)
	taskRe     = regexp.MustCompile(`^\s*[-*+]\s+\[([ xX])\]\s+(.+?)\s*$`)
)

// Task is a checklist item found in a note body.
type Task struct {
	Line int // 1-based line in the full file
	Text string
	Done bool
}

// Result holds the output of parsing a note.
type Result struct {
	Frontmatter map[string]any
	Body        string
	Title       string
	Type        string
	Status      string
	Links       []string
	Tags        []string
	Tasks       []Task
}

// Parse splits the frontmatter from the body and extracts note metadata.
// Invalid YAML frontmatter is treated as part of the body.
func Parse(data []byte) (*Result, error) {
	fm, body, offset := splitFrontmatter(data)

	return &Result{
		Frontmatter: fm,
		Body:        body,
		Title:       deriveTitle(fm, body),
		Type:        stringField(fm, "type"),
		Status:      stringField(fm, "status"),
		Links:       extractLinks(body),
		Tags:        extractTags(body, fm),
		Tasks:       extractTasks(body, offset),
	}, nil
}

// splitFrontmatter returns the decoded frontmatter, the body, and the number of
// lines that precede the body.
func splitFrontmatter(data []byte) (map[string]any, string, int) {
	const delim = "---"
	trimmed := bytes.TrimLeft(data, "\n\r")

	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return nil, string(data), 0
	}
	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		return nil, string(data), 0
	}

	block := rest[:idx]
	after := rest[idx+1+len(delim):]
	// Drop the remainder of the closing delimiter line.
	if nl := bytes.IndexByte(after, '\n'); nl >= 0 {
		after = after[nl+1:]
	} else {
		after = nil
	}
	body := strings.TrimLeft(string(after), "\n\r")

	var fm map[string]any
	if err := yaml.Unmarshal(block, &fm); err != nil {
		return nil, string(data), 0
	}
	consumed := len(data) - len(body)
	return fm, body, bytes.Count(data[:consumed], []byte("\n"))
}

// extractLinks returns deduplicated wikilink targets with aliases and heading
// anchors removed.
func extractLinks(body string) []string {
	matches := wikilinkRe.FindAllStringSubmatch(body, -1)
	seen := make(map[string]struct{}, len(matches))
	var out []string
	for _, m := range matches {
		target := LinkTarget(m[1])
		if target == "" {
			continue
		}
		if _, ok := seen[target]; ok {
			continue
		}
		seen[target] = struct{}{}
		out = append(out, target)
	}
	return out
}

// LinkTarget normalizes the inside of a wikilink: [[Note#Heading|Alias]] -> Note.
func LinkTarget(raw string) string {
	if i := strings.IndexByte(raw, '|'); i >= 0 {
		raw = raw[:i]
	}
	if i := strings.IndexByte(raw, '#'); i >= 0 {
		raw = raw[:i]
	}
	return strings.TrimSpace(raw)
}

// extractTags collects frontmatter tags (list or comma-separated string) and
// inline #tags, in that order.
func extractTags(body string, fm map[string]any) []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(s string) {
		s = strings.TrimPrefix(strings.TrimSpace(s), "#")
		if s == "" {
			return
		}
		if _, dup := seen[s]; dup {
			return
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}

	switch v := fm["tags"].(type) {
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok {
				add(s)
			}
		}
	case string:
		for _, s := range strings.Split(v, ",") {
			add(s)
		}
	}

	for _, m := range tagRe.FindAllStringSubmatch(body, -1) {
		add(m[1])
	}
	return out
}

// extractTasks finds "- [ ] text" and "- [x] text" items outside fenced code.
func extractTasks(body string, offset int) []Task {
	var out []Task
	inFence := false
	for i, line := range strings.Split(body, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			inFence = !inFence
			continue
		}
		if inFence {
			continue
		}
		m := taskRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		out = append(out, Task{
			Line: offset + i + 1,
			Text: m[2],
			Done: m[1] != " ",
		})
	}
	return out
}

// deriveTitle returns the frontmatter title, else the first H1, else "".
func deriveTitle(fm map[string]any, body string) string {
	if s := stringField(fm, "title"); s != "" {
		return s
	}
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") {
			return strings.TrimSpace(trimmed[2:])
		}
	}
	return ""
}

func stringField(fm map[string]any, key string) string {
	s, _ := fm[key].(string)
	return strings.TrimSpace(s)
}
