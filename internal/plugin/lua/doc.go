// Package lua lets Lua scripts extend the node schema.
//
// Scripts run in a sandboxed gopher-lua state with only the base, table,
// string and math libraries opened, and call define to register node types:
//
//	define("callout", { block = true, container = true })
//	define("emoji", { "inline", "atom" })
//
// Usage:
//
//	s := schema.Default()
//	if err := lua.LoadSchema(ctx, s, script); err != nil {
//	    return err
//	}
package lua
