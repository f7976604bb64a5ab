package registry

// Schema restricts a raw record to the fields the survey keeps. Keys are
// field names; a nil value keeps the whole subtree, a nested schema
// recurses into record or list-of-record fields. A nil or empty schema
// keeps everything.
type Schema map[string]Schema

// Conform filters record down to the schema, returning the filtered copy
// and the dotted paths of every field it dropped. The input record is
// not modified.
func (s Schema) Conform(record map[string]any) (map[string]any, []string) {
	if len(s) == 0 {
		return record, nil
	}
	out := make(map[string]any, len(s))
	var dropped []string
	for field, value := range record {
		sub, ok := s[field]
		if !ok {
			dropped = append(dropped, field)
			continue
		}
		if len(sub) == 0 {
			out[field] = value
			continue
		}
		switch v := value.(type) {
		case map[string]any:
			kept, d := sub.Conform(v)
			out[field] = kept
			dropped = append(dropped, prefix(field, d)...)
		case []any:
			list := make([]any, len(v))
			for i, el := range v {
				if m, ok := el.(map[string]any); ok {
					kept, d := sub.Conform(m)
					list[i] = kept
					dropped = append(dropped, prefix(field, d)...)
				} else {
					list[i] = el
				}
			}
			out[field] = list
		default:
			out[field] = value
		}
	}
	return out, dropped
}

func prefix(field string, paths []string) []string {
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = field + "." + p
	}
	return out
}
