package mcpserver

import "strings"

// conventionsTemplate describes how the vault is organised. {{PROTECTED}} is
// replaced with the configured protected folders.
const conventionsTemplate = `# Aegis Vault Conventions

The vault is a plain folder of Markdown notes. Follow these rules when reading,
creating or reorganising notes.

## Layout

Top-level system folders (protected: they can never be moved or renamed):

{{PROTECTED}}

- New, unsorted notes go to ` + "`01_Inbox/`" + `.
- Uploaded files land in ` + "`attachments/`" + `.
- Dotfiles and dot-folders (` + "`.obsidian/`" + `, ` + "`.git/`" + `) are invisible to every tool.

## Note format

` + "```" + `markdown
---
type: meeting            # OPTIONAL - free-form note type
status: active           # OPTIONAL - free-form workflow status
tags: [project-x, q3]    # OPTIONAL - list or comma-separated string
---

# Title (first H1 is the title when frontmatter has none)

Body with [[wikilinks]] and #inline-tags.

- [ ] an open action item
- [x] a finished one
` + "```" + `

## Links

- Link by vault-relative path without extension: ` + "`[[10_Projects/alpha/plan]]`" + `.
- ` + "`[[path.md]]`" + `, ` + "`[[path]]`" + ` and a bare ` + "`[[stem]]`" + ` all resolve to the same note.
- ` + "`[[target|alias]]`" + ` and ` + "`[[target#heading]]`" + ` are supported.
- After ` + "`move_entry`" + ` or ` + "`rename_item`" + ` pass ` + "`update_links: true`" + ` (or call
  ` + "`update_links`" + `) so references follow the note. A bare ` + "`[[stem]]`" + ` is rewritten
  everywhere, even when another folder has a note with the same stem.

## Naming

- Paths use forward slashes and end with ` + "`.md`" + ` for notes.
- Moving onto an existing name never overwrites: the moved entry becomes
  ` + "`name_<unix-seconds>.ext`" + ` (then ` + "`name_<unix-seconds>-2.ext`" + `, ...).
- Renaming onto an existing name fails; pick another name.
`

// Conventions renders the vault conventions for the given protected folders.
func Conventions(protected []string) string {
	var b strings.Builder
	for _, p := range protected {
		b.WriteString("- `" + p + "/`\n")
	}
	return strings.Replace(conventionsTemplate, "{{PROTECTED}}", strings.TrimSuffix(b.String(), "\n"), 1)
}
