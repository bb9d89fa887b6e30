package stack

import (
	"regexp"
	"sort"
	"strings"
)

// references found in a serialized property tree
type references struct {
	ref    []string
	getAtt []string
}

func (r references) all() []string {
	return append(append([]string(nil), r.ref...), r.getAtt...)
}

// subVarRegex matches ${Name} and ${Name.Attr} in Fn::Sub strings. ${!Literal}
// escapes are not matched.
var subVarRegex = regexp.MustCompile(`\$\{([A-Za-z0-9:]+)(\.[A-Za-z0-9.]+)?\}`)

// collectRefs walks v for Ref, Fn::GetAtt and Fn::Sub references to logical
// IDs. Pseudo parameters (AWS::*) are skipped.
func collectRefs(v any) references {
	var r references
	walk(v, &r)
	return r
}

func walk(v any, r *references) {
	switch val := v.(type) {
	case map[string]any:
		if len(val) == 1 {
			if name, ok := val["Ref"].(string); ok {
				if !isPseudo(name) {
					r.ref = append(r.ref, name)
				}
				return
			}
			if args, ok := val["Fn::GetAtt"]; ok {
				if name := getAttTarget(args); name != "" {
					r.getAtt = append(r.getAtt, name)
				}
				return
			}
			if sub, ok := val["Fn::Sub"]; ok {
				walkSub(sub, r)
				return
			}
		}
		for _, key := range sortedKeys(val) {
			walk(val[key], r)
		}
	case []any:
		for _, elem := range val {
			walk(elem, r)
		}
	}
}

func getAttTarget(args any) string {
	switch a := args.(type) {
	case []any:
		if len(a) > 0 {
			name, _ := a[0].(string)
			return name
		}
	case []string:
		if len(a) > 0 {
			return a[0]
		}
	case string:
		name, _, _ := strings.Cut(a, ".")
		return name
	}
	return ""
}

// walkSub handles both the string form and the [string, vars] form of Fn::Sub.
// Names bound in the vars map are local and not resource references.
func walkSub(sub any, r *references) {
	var body string
	local := map[string]bool{}

	switch s := sub.(type) {
	case string:
		body = s
	case []any:
		if len(s) > 0 {
			body, _ = s[0].(string)
		}
		if len(s) > 1 {
			if vars, ok := s[1].(map[string]any); ok {
				for name, value := range vars {
					local[name] = true
					walk(value, r)
				}
			}
		}
	}

	for _, m := range subVarRegex.FindAllStringSubmatch(body, -1) {
		name := m[1]
		if isPseudo(name) || local[name] {
			continue
		}
		if m[2] != "" {
			r.getAtt = append(r.getAtt, name)
		} else {
			r.ref = append(r.ref, name)
		}
	}
}

func isPseudo(name string) bool {
	return strings.HasPrefix(name, "AWS::")
}

func sortedUniq(names []string) []string {
	if len(names) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	sort.Strings(out)
	return out
}
