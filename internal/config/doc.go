// Package config provides configuration management for intakectl.
//
// Configuration is layered: later sources override earlier ones.
//
//  1. Default Configuration (embedded in binary)
//  2. User Configuration (~/.config/intakectl/config.yaml)
//  3. Project Configuration (./.intakectl/config.yaml)
//
// # Configuration Structure
//
//	intakesRoot: "."
//	engine:
//	  command: ["intake-parser", "--test-mode"]
//	  timeout: 30s
//	  cacheTTL: 5m
//	layout:
//	  parser: "ingest/parser.yml"
//	  fields: "_meta/fields.yml"
//	  tests: "tests/**/*.json"
//	normalizer:
//	  dialect: "test"
//
// The engine command receives one of the sub-commands "parse <fixture>",
// "coverage <module> <format>" or "taxonomy <module> <format>" and must
// print a JSON document on stdout.
//
// Layout paths are relative to <intakesRoot>/<module>/<format>.
package config
