// Package fastview implements a builder pattern for simple server-pushed
// views: given an input data model, apply a transformation to a view-model,
// then multiplex that view-model to one or more view components over
// websocket.
package fastview

import (
	"html/template"
)

// EleUpdate is an element identifier and a set of operations to apply to its
// attributes/content.
type EleUpdate struct {
	// EleId is the id by which the client finds the element.
	EleId string
	// Ops are attrib keys or 'textContent', paired with the strings to which
	// these are set. Example: ('x','123') means "set attribute 'x' to 123".
	// 'textContent' is reserved: ('textContent','abc') means "set
	// ele.textContent to abc".
	Ops []Op
}

// Op is a key and value, e.g. an html attribute and its new value.
type Op struct {
	Key   string
	Value string
}

// ViewComponent is a server-side view: Parse writes its template definition
// into a parent template (allowing recursive composition of components),
// and Updates exposes the channel of ele-updates to push to the client.
type ViewComponent interface {
	Updates() <-chan []EleUpdate
	Parse(*template.Template) (string, error)
}
