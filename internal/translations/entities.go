package translations

import "strings"

// The producer escapes a small, fixed set of HTML entities in translation
// values; anything outside this table passes through untouched.
var entityReplacer = strings.NewReplacer(
	"&amp;", "&",
	"&lt;", "<",
	"&gt;", ">",
	"&quot;", `"`,
	"&apos;", "'",
	"&#39;", "'",
	"&nbsp;", "\u00a0",
	"&ndash;", "–",
	"&mdash;", "—",
	"&hellip;", "…",
	"&copy;", "©",
	"&reg;", "®",
	"&trade;", "™",
)

// DecodeEntities decodes the fixed entity table.
func DecodeEntities(s string) string {
	if !strings.Contains(s, "&") {
		return s
	}
	return entityReplacer.Replace(s)
}
