// Package chatflow provides a minimal public façade for building and saving
// chatbot conversation flows without importing internal packages. It
// re-exports the flow and command types and exposes a Runtime that wraps the
// editor with in-memory storage by default.
package chatflow
