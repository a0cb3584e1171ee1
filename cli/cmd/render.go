package cmd

import (
	"fmt"

	"github.com/wkalt/ulog/container"
	"github.com/wkalt/ulog/schema"
	"github.com/wkalt/ulog/value"
)

/*
Rendering of decoded values for the info and cat commands. Samples become
maps keyed by field name, with nested records as nested maps, so they can
be fed straight to the JSON encoder or formatted.
*/

////////////////////////////////////////////////////////////////////////////////

// renderValue decodes a value in its native form, degrading to an error
// string rather than failing the listing.
func renderValue(v value.Value) any {
	x, err := v.Native()
	if err != nil {
		return fmt.Sprintf("<%v>", err)
	}
	return x
}

// sampleToMap converts one typed sample into a field-name-keyed map.
func sampleToMap(view container.TypedDataView) map[string]any {
	out := make(map[string]any, len(view.Format().Fields()))
	for _, f := range view.Format().Fields() {
		out[f.Name] = fieldValue(view.ValueRef(f), f)
	}
	return out
}

func fieldValue(v value.Value, f *schema.Field) any {
	if f.Type != schema.NESTED {
		return renderValue(v)
	}
	if f.ArrayLength >= 0 {
		out := make([]any, f.ArrayLength)
		for i := range out {
			out[i] = nestedMap(v.Index(i), f)
		}
		return out
	}
	return nestedMap(v, f)
}

func nestedMap(v value.Value, f *schema.Field) any {
	nested, err := f.NestedFormat()
	if err != nil {
		return fmt.Sprintf("<%v>", err)
	}
	out := make(map[string]any, len(nested.Fields()))
	for _, child := range nested.Fields() {
		out[child.Name] = fieldValue(v.FieldRef(child), child)
	}
	return out
}
