// Package client talks to the remote chat endpoint over HTTP.
//
// # Request
//
//	POST <endpoint>
//	Content-Type: application/json
//
//	{"messages":[{"role":"user","content":"hi"}],"sessionId":"0190..."}
//
// # Response
//
// A 2xx response body is a stream of "data: <json>" frames, decoded by
// package stream. Anything else is a request-level failure:
//
//   - Transport errors are wrapped ("sending request: ...")
//   - Non-2xx statuses return *StatusError with the server's message
//
// Open does not read the body; the caller drains and closes it.
package client
