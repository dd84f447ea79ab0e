package web

import "embed"

// Content holds the embedded map viewer: the page, its script and its
// stylesheet. The page is served at / and the rest under /static/.
//
//go:embed index.html app.js styles.css
var Content embed.FS
