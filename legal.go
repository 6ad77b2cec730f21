package skosd

import _ "embed"

//go:embed NOTICE
var Notice string

// LegalText returns legal text to be included in human-readable output of skosd commands.
func LegalText() string {
	return `
================================================================================
skosd - A SKOS and SKOS-XL resource server
================================================================================
` + Notice + "\n" + ""
}
