// Package configs provides the embedded configuration template for filesearch.
//
// The template is embedded at build time so `filesearch config init` works
// from any install, and documents every setting with its default.
//
// Configuration hierarchy (see internal/config Load):
//  1. Hardcoded defaults (config.NewConfig)
//  2. User config (~/.config/filesearch/config.yaml)
//  3. Project config (--config file or .filesearch.yaml)
//  4. Environment variables (FILESEARCH_*)
package configs

import _ "embed"

// ConfigTemplate is written by `filesearch config init`.
//
//go:embed config.example.yaml
var ConfigTemplate string
