// Package utils provides small helpers shared across features, currently
// Shopify global id (gid) parsing.
package utils
