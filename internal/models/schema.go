package models

// InputSchema renders FormFields as a JSON schema object. Every column is
// required; select fields accept their option list, placeholder included.
// Unknown properties are allowed so job variables can carry process data.
func InputSchema() map[string]interface{} {
	props := make(map[string]interface{}, len(FormFields))
	required := make([]interface{}, 0, len(FormFields))

	for _, f := range FormFields {
		p := map[string]interface{}{}
		switch f.Kind {
		case FieldSelect:
			p["type"] = "string"
			enum := make([]interface{}, len(f.Options))
			for i, o := range f.Options {
				enum[i] = o
			}
			p["enum"] = enum
		default:
			if f.Integer {
				p["type"] = "integer"
			} else {
				p["type"] = "number"
			}
			if f.Min != nil {
				p["minimum"] = *f.Min
			}
			if f.Max != nil {
				p["maximum"] = *f.Max
			}
		}
		props[f.Name] = p
		required = append(required, f.Name)
	}

	return map[string]interface{}{
		"type":       "object",
		"properties": props,
		"required":   required,
	}
}
