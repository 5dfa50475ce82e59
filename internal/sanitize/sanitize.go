// Package sanitize strips unsafe markup from rich-text post content.
// Content is sanitized at write time and again before every render:
// stored content is treated as tainted because the store can be written
// by paths outside this service.
package sanitize

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

type Policy struct {
	policy *bluemonday.Policy
}

// NewPolicy allows the formatting a rich-text editor produces (user
// generated content rules) plus images, since posts embed uploads.
func NewPolicy() *Policy {
	p := bluemonday.UGCPolicy()
	p.AllowImages()
	return &Policy{policy: p}
}

func (p *Policy) Sanitize(html string) string {
	return strings.TrimSpace(p.policy.Sanitize(html))
}
