// Package shopify provides the Admin GraphQL API client.
//
// The client is an explicit handle constructed from configuration and passed
// into every component that talks to the store (bulk runner, country mapper),
// so tests can substitute an httptest-backed endpoint.
//
// # Request Handling
//
// Execute posts a GraphQL document with the store access token, surfaces
// transport failures, non-2xx statuses and response-level GraphQL errors as
// wrapped errors, and decodes the data payload into a caller-supplied view.
//
// The bulk operation lifecycle (submit, poll, download) lives in the bulk
// subpackage.
package shopify
