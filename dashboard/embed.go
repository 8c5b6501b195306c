// Package dashboard provides the embedded status page of the reporter CLI.
//
// The page lists recent report attempts, fetched from /api/status and kept
// current over /api/sse. It is served by the status server at "/".
package dashboard

import "embed"

// Assets is an embedded filesystem containing the status page.
//
// The filesystem structure is:
//
//	assets/
//	  index.html    - Status page with inline CSS and JavaScript
//
//go:embed assets/*
var Assets embed.FS
