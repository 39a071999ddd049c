package generation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ExtractJSON returns the first balanced {...} span in s. Markdown fences and
// prose around the object are ignored; braces inside JSON strings do not count.
func ExtractJSON(s string) (string, error) {
	start := strings.IndexByte(s, '{')
	for start >= 0 {
		if end := matchBrace(s, start); end > 0 {
			return s[start : end+1], nil
		}
		next := strings.IndexByte(s[start+1:], '{')
		if next < 0 {
			break
		}
		start += next + 1
	}
	return "", ErrNoJSON
}

// matchBrace returns the index of the brace closing the one at open, or -1.
func matchBrace(s string, open int) int {
	depth := 0
	inString, escaped := false, false
	for i := open; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

func compileSchema(name, src string) *jsonschema.Schema {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	url := fmt.Sprintf("https://adcraft.schemas.local/generation/%s.schema.json", name)
	if err := c.AddResource(url, strings.NewReader(src)); err != nil {
		panic(fmt.Sprintf("generation: load %s schema: %v", name, err))
	}
	return c.MustCompile(url)
}

// decodeStrict extracts the JSON object from a model response, validates it
// against schema and decodes it into v, rejecting unknown fields.
func decodeStrict(raw string, schema *jsonschema.Schema, v any) error {
	if strings.TrimSpace(raw) == "" {
		return ErrEmptyModelMessage
	}
	span, err := ExtractJSON(raw)
	if err != nil {
		return err
	}

	var doc any
	dec := json.NewDecoder(strings.NewReader(span))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return fmt.Errorf("%w: %w", ErrNoJSON, err)
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("%w: %w", ErrSchemaViolation, err)
	}

	strict := json.NewDecoder(bytes.NewReader([]byte(span)))
	strict.DisallowUnknownFields()
	if err := strict.Decode(v); err != nil {
		return fmt.Errorf("%w: %w", ErrSchemaViolation, err)
	}
	return nil
}
