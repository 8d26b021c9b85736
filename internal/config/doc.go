// Package config defines the refresher settings and provides helpers to
// load, validate and save them in YAML format.
//
// The Config type holds the package directory, the catalog application name
// and endpoint, and the vendor download page used to fetch the deployment tool.
package config
