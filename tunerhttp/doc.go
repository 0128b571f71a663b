// Package tunerhttp exposes the prompt tuner's HTTP API: structured
// evaluation submissions, chat and feedback proxying, per-revision prompt
// management, and health endpoints.
//
// The handler is an http.Handler built on net/http's ServeMux method
// patterns. Construct one with New and mount it on any server:
//
//	h, err := tunerhttp.New(backendClient,
//		tunerhttp.WithLogger(logger),
//		tunerhttp.WithPromptStore(store),
//		tunerhttp.WithCache(cache),
//	)
//
// Authentication is optional. Without an Authenticator the instance is
// open; with one, every request must carry a valid bearer token.
package tunerhttp
