// Package config loads client configuration from YAML files, .env
// files and environment variables, in that order of increasing
// precedence. The loaded Config fans out into ready-to-use session and
// stream configurations so credentials are declared once.
package config
