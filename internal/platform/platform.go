// Package platform holds the static capability table for every destination
// network and the pure text helpers derived from it.
package platform

import (
	"sort"
	"strings"
)

type ID string

const (
	Twitter  ID = "twitter"
	Bluesky  ID = "bluesky"
	Mastodon ID = "mastodon"
	LinkedIn ID = "linkedin"
)

type Capability struct {
	ID             ID     `json:"id"`
	Name           string `json:"name"`
	CharLimit      int    `json:"char_limit"`
	ImageLimitKB   int    `json:"image_limit_kb"`
	TagSymbol      string `json:"tag_symbol"`
	MentionSymbol  string `json:"mention_symbol"`
	ShortensURLs   bool   `json:"shortens_urls"`
	SupportsMarkup bool   `json:"supports_markup"`
}

var capabilities = map[ID]Capability{
	Twitter: {
		ID:            Twitter,
		Name:          "Twitter/X",
		CharLimit:     280,
		ImageLimitKB:  5120,
		TagSymbol:     "#",
		MentionSymbol: "@",
		ShortensURLs:  true,
	},
	Bluesky: {
		ID:            Bluesky,
		Name:          "Bluesky",
		CharLimit:     300,
		ImageLimitKB:  900,
		TagSymbol:     "#",
		MentionSymbol: "@",
	},
	Mastodon: {
		ID:             Mastodon,
		Name:           "Mastodon",
		CharLimit:      500,
		ImageLimitKB:   8192,
		TagSymbol:      "#",
		MentionSymbol:  "@",
		SupportsMarkup: true,
	},
	LinkedIn: {
		ID:            LinkedIn,
		Name:          "LinkedIn",
		CharLimit:     3000,
		ImageLimitKB:  5120,
		TagSymbol:     "#",
		MentionSymbol: "@",
	},
}

func Lookup(id ID) (Capability, bool) {
	c, ok := capabilities[id]
	return c, ok
}

func IsKnown(id ID) bool {
	_, ok := capabilities[id]
	return ok
}

// All returns the table ordered by id.
func All() []Capability {
	list := make([]Capability, 0, len(capabilities))
	for _, c := range capabilities {
		list = append(list, c)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list
}

// MaxCharLimit is the smallest character limit among the known ids, or 0
// when none of them is known.
func MaxCharLimit(ids []ID) int {
	limit := 0
	for _, id := range ids {
		c, ok := capabilities[id]
		if !ok {
			continue
		}
		if limit == 0 || c.CharLimit < limit {
			limit = c.CharLimit
		}
	}
	return limit
}

// Truncate counts characters as runes. Unknown ids leave content untouched.
func Truncate(content string, id ID) string {
	c, ok := capabilities[id]
	if !ok {
		return content
	}
	runes := []rune(content)
	if len(runes) <= c.CharLimit {
		return content
	}
	return string(runes[:c.CharLimit-3]) + "..."
}

func FormatTags(tags []string, id ID) string {
	symbol := "#"
	if c, ok := capabilities[id]; ok {
		symbol = c.TagSymbol
	}

	formatted := make([]string, 0, len(tags))
	for _, tag := range NormalizeTags(tags) {
		formatted = append(formatted, symbol+tag)
	}
	return strings.Join(formatted, " ")
}

// NormalizeTags trims each tag and strips one leading '#' or '@'. Tags left
// empty are dropped.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag != "" && (tag[0] == '#' || tag[0] == '@') {
			tag = tag[1:]
		}
		if tag == "" {
			continue
		}
		out = append(out, tag)
	}
	return out
}

// ComposeText appends the formatted tag block after a blank line.
func ComposeText(content string, tags []string, id ID) string {
	block := FormatTags(tags, id)
	if block == "" {
		return content
	}
	return content + "\n\n" + block
}
