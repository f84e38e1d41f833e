// Package includes owns the partial table and the resolver that expands
// `{% include %}` markers. Partials come from built-in handlers and from
// template files under `_includes`; both are compiled on registration and the
// table is sealed before the first document resolves.
package includes
