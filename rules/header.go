package rules

import "strings"

var headerReplacer = strings.NewReplacer(" ", "", "_", "", "-", "")

// HeaderEquivalent reports whether two column names are equal after
// removing spaces, underscores and hyphens and lower-casing.
func HeaderEquivalent(a, b string) bool {
	return simplifyHeader(a) == simplifyHeader(b)
}

func simplifyHeader(name string) string {
	return strings.ToLower(headerReplacer.Replace(name))
}
