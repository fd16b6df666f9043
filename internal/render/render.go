// Package render substitutes variables into stored email templates.
//
// Templates carry two constructs: conditional blocks of the form
// {{#if name}}...{{/if}} and plain {{name}} placeholders. Blocks are resolved
// first, then placeholders. No HTML escaping is performed; templates and
// variables are trusted inputs.
package render

import "regexp"

var (
	ifBlockRe     = regexp.MustCompile(`(?s)\{\{#if\s+([A-Za-z0-9_]+)\}\}(.*?)\{\{/if\}\}`)
	placeholderRe = regexp.MustCompile(`\{\{([A-Za-z0-9_]+)\}\}`)
)

// Render resolves conditional blocks and placeholders in template.
//
// A block's inner text is kept iff its variable is present and non-empty,
// otherwise the whole block including markers is removed. Blocks are resolved
// one at a time, rescanning until no markers remain, so any number of
// independent blocks in sequence works. Placeholders whose variable is absent
// are left untouched; the rendered output makes the omission visible instead
// of silently blanking it.
func Render(template string, variables map[string]string) string {
	out := template
	for {
		m := ifBlockRe.FindStringSubmatchIndex(out)
		if m == nil {
			break
		}
		name := out[m[2]:m[3]]
		inner := out[m[4]:m[5]]

		kept := ""
		if v, ok := variables[name]; ok && v != "" {
			kept = inner
		}
		out = out[:m[0]] + kept + out[m[1]:]
	}

	return placeholderRe.ReplaceAllStringFunc(out, func(match string) string {
		name := match[2 : len(match)-2]
		if v, ok := variables[name]; ok {
			return v
		}
		return match
	})
}
