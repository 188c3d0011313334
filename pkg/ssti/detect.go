package ssti

import "strings"

// Engine is a template engine family inferred from the syntax of a payload
// that evaluated.
type Engine string

const (
	EngineJinja      Engine = "Jinja2/Twig"
	EngineFreemarker Engine = "Freemarker"
	EngineERB        Engine = "ERB"
	EngineUnknown    Engine = ""
)

// EngineFor maps payload delimiters to the engine family that uses them.
func EngineFor(payload string) Engine {
	switch {
	case strings.HasPrefix(payload, "{{") && strings.HasSuffix(payload, "}}"):
		return EngineJinja
	case strings.HasPrefix(payload, "${") && strings.HasSuffix(payload, "}"):
		return EngineFreemarker
	case strings.HasPrefix(payload, "<%=") && strings.HasSuffix(payload, "%>"):
		return EngineERB
	}
	return EngineUnknown
}
