// Package appfs holds the files embedded into the binaries:
// data migrations, static assets and email templates.
package appfs

import "embed"

//go:embed migrations/*.sql assets/* templates/email/*
var FS embed.FS
