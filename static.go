package main

import _ "embed"

// Embedded web interface assets.
var (
	//go:embed web/index.html
	indexHTML string

	//go:embed web/style.css
	styleCSS string

	//go:embed web/app.js
	appJS string
)
