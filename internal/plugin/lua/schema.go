package lua

import (
	"context"
	"fmt"

	lua "github.com/yuin/gopher-lua"

	"github.com/emrgen/carbon/internal/schema"
)

// LoadSchema runs script and registers every type it defines into s.
func LoadSchema(ctx context.Context, s *schema.Schema, script string, opts ...StateOption) error {
	st := NewState(opts...)
	defer st.Close()

	if err := st.Register("define", defineFunc(s)); err != nil {
		return err
	}
	if err := st.DoString(ctx, script); err != nil {
		return fmt.Errorf("%w: %w", ErrSchemaScript, err)
	}
	return nil
}

// defineFunc implements define(name, flags). flags is either a map of
// flag name to boolean or an array of flag names.
func defineFunc(s *schema.Schema) lua.LGFunction {
	return func(L *lua.LState) int {
		name := L.CheckString(1)
		tbl := L.OptTable(2, L.NewTable())

		var flags schema.Flags
		var ferr error
		tbl.ForEach(func(k, v lua.LValue) {
			if ferr != nil {
				return
			}
			var flagName string
			switch {
			case k.Type() == lua.LTNumber && v.Type() == lua.LTString:
				flagName = v.String()
			case k.Type() == lua.LTString:
				if !lua.LVAsBool(v) {
					return
				}
				flagName = k.String()
			default:
				return
			}
			f, err := schema.ParseFlag(flagName)
			if err != nil {
				ferr = err
				return
			}
			flags |= f
		})
		if ferr != nil {
			L.RaiseError("define %s: %v", name, ferr)
			return 0
		}
		if err := s.Register(schema.NodeType{Name: name, Flags: flags}); err != nil {
			L.RaiseError("define %s: %v", name, err)
		}
		return 0
	}
}
