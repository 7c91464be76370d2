// Package google provides the credentials behind both calendar identity modes.
//
// Delegated calendars act with a participant's own OAuth token. Tokens are
// kept by a TokenProvider, either as files on disk (FileTokenProvider) or in
// an mcp-oauth token store (StoreTokenProvider). Refreshed tokens are written
// back through the same provider.
//
// The shared calendar acts as a service account loaded from a JSON key.
package google
