package prompt

import (
	"strings"

	"github.com/bjornbryggman/eu4-modding-tools/internal/apperr"
)

// Format substitutes `{name}` placeholders in tmpl with values from vars.
// `{{` and `}}` produce literal braces. A placeholder with no value, an empty
// placeholder or an unbalanced brace is a validation error.
func Format(tmpl string, vars map[string]string) (string, error) {
	var sb strings.Builder
	sb.Grow(len(tmpl))

	for i := 0; i < len(tmpl); i++ {
		c := tmpl[i]
		switch c {
		case '{':
			if i+1 < len(tmpl) && tmpl[i+1] == '{' {
				sb.WriteByte('{')
				i++
				continue
			}
			end := strings.IndexByte(tmpl[i+1:], '}')
			if end < 0 {
				return "", apperr.Validationf("unclosed '{' at offset %d", i)
			}
			name := strings.TrimSpace(tmpl[i+1 : i+1+end])
			if name == "" || strings.ContainsAny(name, "{:!") {
				return "", apperr.Validationf("invalid placeholder %q at offset %d", tmpl[i:i+2+end], i)
			}
			val, ok := vars[name]
			if !ok {
				return "", apperr.Validationf("no value for placeholder {%s}", name)
			}
			sb.WriteString(val)
			i += end + 1
		case '}':
			if i+1 < len(tmpl) && tmpl[i+1] == '}' {
				sb.WriteByte('}')
				i++
				continue
			}
			return "", apperr.Validationf("single '}' at offset %d", i)
		default:
			sb.WriteByte(c)
		}
	}
	return sb.String(), nil
}
