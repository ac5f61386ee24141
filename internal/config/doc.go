// Package config defines installer settings and helpers to load, validate and
// save them in YAML format.
//
// Config is constructed once per invocation and passed explicitly to every
// component; Layout derives the install directories from the prefix.
package config
