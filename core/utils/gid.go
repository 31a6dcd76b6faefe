package utils

import "strings"

// NumericGID extracts the trailing numeric identifier from a Shopify global
// id such as "gid://shopify/ProductVariant/123456". It returns the input
// unchanged when there is no path separator.
func NumericGID(gid string) string {
	if idx := strings.LastIndex(gid, "/"); idx >= 0 {
		return gid[idx+1:]
	}
	return gid
}

// GIDType returns the type segment of a Shopify global id, e.g.
// "ProductVariant" for "gid://shopify/ProductVariant/123456", or an empty
// string when the id does not follow the gid scheme.
func GIDType(gid string) string {
	const scheme = "gid://shopify/"
	if !strings.HasPrefix(gid, scheme) {
		return ""
	}
	rest := gid[len(scheme):]
	if idx := strings.Index(rest, "/"); idx >= 0 {
		return rest[:idx]
	}
	return rest
}
