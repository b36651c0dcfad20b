// Package ports holds the interfaces the todo service is assembled from:
// TodoService sits between the HTTP handlers and the application layer,
// TodoStore between the application layer and the memory or postgres
// backends, and the health types between the stores and the readiness probe.
package ports
