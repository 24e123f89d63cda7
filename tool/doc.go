// Package tool turns a tool name plus a loosely typed argument payload into a
// correctly typed call of a registered Go function.
//
// The package is split by concern:
//   - type_system, value, parsers: the closed tag set, tagged values and the
//     parser table
//   - descriptor, tool, function: tool metadata and adapter synthesis
//   - binder: payload shapes and positional argument binding
//   - registry, dispatcher: name lookup and the dispatch entry point
//   - journal, observability: dispatch history and per-dispatch hooks
//
// Every failure is a *ToolError carrying a code and the stage that produced it.
package tool
