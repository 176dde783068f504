// Package httpapi binds the report facade to HTTP. It owns routing, caller
// identity extraction and JSON shapes; every persistence semantic lives
// behind the facade, which receives the identity as an explicit argument.
package httpapi
