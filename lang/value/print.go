package value

import "strconv"

// Stringify renders v the way PRINT does: numbers without a trailing ".0"
// when they are integral,
// booleans and nil as their keywords, objects via their own String method.
func Stringify(v Value) string {
	switch {
	case v.IsNil():
		return "nil"
	case v.IsBool():
		if v.AsBool() {
			return "true"
		}
		return "false"
	case v.IsNumber():
		return formatNumber(v.AsNumber())
	case v.IsObject():
		return v.AsObject().(interface{ String() string }).String()
	default:
		return ""
	}
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
