package netspec

// Attribute accessors tolerate the scalar types a YAML decoder produces
// (int, float64, string, []any) as well as values set directly from Go.

// AttrInt returns an integer attribute or defaultVal.
func (l *LayerSpec) AttrInt(name string, defaultVal int) int {
	if v, ok := toInt(l.Attrs[name]); ok {
		return v
	}
	return defaultVal
}

// AttrFloat returns a float attribute or defaultVal.
func (l *LayerSpec) AttrFloat(name string, defaultVal float32) float32 {
	if v, ok := toFloat(l.Attrs[name]); ok {
		return v
	}
	return defaultVal
}

// AttrBool returns a boolean attribute or defaultVal.
func (l *LayerSpec) AttrBool(name string, defaultVal bool) bool {
	if v, ok := l.Attrs[name].(bool); ok {
		return v
	}
	return defaultVal
}

// AttrString returns a string attribute or defaultVal.
func (l *LayerSpec) AttrString(name, defaultVal string) string {
	if v, ok := l.Attrs[name].(string); ok {
		return v
	}
	return defaultVal
}

// HasAttr reports whether an attribute is present.
func (l *LayerSpec) HasAttr(name string) bool {
	_, ok := l.Attrs[name]
	return ok
}

// AttrInts returns an integer list attribute. A scalar is a one-element list.
func (l *LayerSpec) AttrInts(name string) []int {
	return intList(l.Attrs[name])
}

// AttrFloats returns a float list attribute. A scalar is a one-element list.
func (l *LayerSpec) AttrFloats(name string) []float32 {
	switch v := l.Attrs[name].(type) {
	case nil:
		return nil
	case []float32:
		return v
	case []any:
		out := make([]float32, 0, len(v))
		for _, item := range v {
			if f, ok := toFloat(item); ok {
				out = append(out, f)
			}
		}
		return out
	default:
		if f, ok := toFloat(v); ok {
			return []float32{f}
		}
		return nil
	}
}

// AttrShapes returns a list of shapes. Both a single shape ([2, 3]) and a
// list of shapes ([[2, 3], [4]]) are accepted.
func (l *LayerSpec) AttrShapes(name string) [][]int {
	switch v := l.Attrs[name].(type) {
	case nil:
		return nil
	case [][]int:
		return v
	case []int:
		return [][]int{v}
	case []any:
		if len(v) > 0 {
			if _, nested := v[0].([]any); nested {
				out := make([][]int, 0, len(v))
				for _, item := range v {
					out = append(out, intList(item))
				}
				return out
			}
		}
		return [][]int{intList(v)}
	default:
		return nil
	}
}

// AttrMap returns a nested attribute block, e.g. a filler definition.
func (l *LayerSpec) AttrMap(name string) map[string]any {
	if m, ok := l.Attrs[name].(map[string]any); ok {
		return m
	}
	return nil
}

func intList(v any) []int {
	switch v := v.(type) {
	case nil:
		return nil
	case []int:
		return v
	case []any:
		out := make([]int, 0, len(v))
		for _, item := range v {
			if n, ok := toInt(item); ok {
				out = append(out, n)
			}
		}
		return out
	default:
		if n, ok := toInt(v); ok {
			return []int{n}
		}
		return nil
	}
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case uint64:
		return int(n), true
	case float64:
		return int(n), true
	case float32:
		return int(n), true
	default:
		return 0, false
	}
}

func toFloat(v any) (float32, bool) {
	switch n := v.(type) {
	case float32:
		return n, true
	case float64:
		return float32(n), true
	case int:
		return float32(n), true
	case int64:
		return float32(n), true
	default:
		return 0, false
	}
}

// FloatAttr reads a float from a nested attribute block.
func FloatAttr(m map[string]any, name string, defaultVal float32) float32 {
	if v, ok := toFloat(m[name]); ok {
		return v
	}
	return defaultVal
}
