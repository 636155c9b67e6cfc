// Package appfs embeds the files the binaries need at runtime.
package appfs

import "embed"

// FS holds the SQL migrations (migrations/), the email templates (templates/email/)
// and static assets (assets/).
//
//go:embed migrations/*.sql templates/email/* assets/*
var FS embed.FS

const (
	MigrationsDir       = "migrations"
	EmailTemplatesDir   = "templates/email"
	CommonPasswordsFile = "assets/common-passwords.txt"
)
