package services

import (
	"regexp"
	"strings"
)

var (
	nonSlugRun     = regexp.MustCompile(`[^a-z0-9]+`)
	nonSlugChar    = regexp.MustCompile(`[^a-z0-9\s-]`)
	whitespaceRun  = regexp.MustCompile(`\s+`)
	repeatedDashes = regexp.MustCompile(`-+`)
)

// slugify lowercases s and replaces every run of characters outside [a-z0-9] with a dash.
func slugify(s string) string {
	return strings.Trim(nonSlugRun.ReplaceAllString(strings.ToLower(s), "-"), "-")
}

// characterSlug drops punctuation instead of turning it into dashes, so
// "My Hero!" becomes "my-hero".
func characterSlug(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = nonSlugChar.ReplaceAllString(s, "")
	s = whitespaceRun.ReplaceAllString(s, "-")
	s = repeatedDashes.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}
