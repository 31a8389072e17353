// Package config defines the settings shared by the server and the command
// line tools. Values are layered from .env files, config.yaml and VOCAB_*
// variables, later sources winning, and checked with struct tags before any
// component sees them. The offline tools load through LoadTool, which leaves
// the token settings unchecked.
package config
