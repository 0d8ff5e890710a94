package format

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/aretw0/evalrepl/pkg/domain"
)

// Repr renders v the way the interactive interpreter echoes values.
func Repr(v any) string {
	switch x := v.(type) {
	case nil:
		return "nil"
	case string:
		return strconv.Quote(x)
	case bool:
		return strconv.FormatBool(x)
	case float64:
		return fmt.Sprintf("%.14g", x)
	case int:
		return strconv.Itoa(x)
	case domain.Values:
		parts := make([]string, len(x))
		for i, e := range x {
			parts[i] = Repr(e)
		}
		return strings.Join(parts, ", ")
	case []any:
		parts := make([]string, len(x))
		for i, e := range x {
			parts[i] = Repr(e)
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case map[string]any:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = k + " = " + Repr(x[k])
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case *domain.Embed:
		return fmt.Sprintf("<embed %q>", x.Title)
	case error:
		return x.Error()
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprintf("%+v", v)
	}
}

// TypeName describes the dynamic type of v.
func TypeName(v any) string {
	switch v.(type) {
	case nil:
		return "nil"
	case string:
		return "string"
	case float64, int:
		return "number"
	case bool:
		return "boolean"
	case []any, map[string]any:
		return "table"
	case domain.Values:
		return "values"
	}
	return reflect.TypeOf(v).String()
}
