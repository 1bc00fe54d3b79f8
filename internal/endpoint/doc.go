// Package endpoint implements a local stand-in for the remote chat endpoint.
//
// The Handler accepts the same JSON body the client posts, picks a canned
// reply by keyword from a Catalog, and streams it back as "data: " frames
// whose content grows by a few words at a time. A catalog can be loaded
// from TOML to change the replies without rebuilding.
package endpoint
