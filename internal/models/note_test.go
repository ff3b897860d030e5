package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsMarkdown(t *testing.T) {
	cases := []struct {
		node VaultNode
		want bool
	}{
		{VaultNode{Name: "a.md", Extension: "md"}, true},
		{VaultNode{Name: "a.txt", Extension: "txt"}, false},
		{VaultNode{Name: "dir.md", IsDirectory: true}, false},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, c.node.IsMarkdown(), c.node.Name)
	}
}
