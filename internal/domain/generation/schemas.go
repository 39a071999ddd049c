package generation

const analysisSchemaSrc = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "additionalProperties": false,
  "required": ["coreMessage", "valueProposition", "targetAudience", "tone",
               "emotionalTriggers", "headlinePatterns", "ctaPatterns"],
  "properties": {
    "coreMessage":       {"type": "string", "minLength": 1},
    "valueProposition":  {"type": "string"},
    "targetAudience":    {"type": "string"},
    "tone":              {"type": "string", "pattern": "^([Dd][Uu]|[Ss][Ii][Ee])$"},
    "voiceStyle":        {"type": "string"},
    "emotionalTriggers": {"$ref": "#/$defs/strings"},
    "painPoints":        {"$ref": "#/$defs/strings"},
    "solutions":         {"$ref": "#/$defs/strings"},
    "keyPhrases":        {"$ref": "#/$defs/strings"},
    "headlinePatterns":  {"$ref": "#/$defs/strings"},
    "ctaPatterns":       {"$ref": "#/$defs/strings"},
    "visualThemes":      {"$ref": "#/$defs/strings"},
    "colorPalette": {
      "type": "array",
      "items": {"type": "string", "pattern": "^#?([0-9A-Fa-f]{3}|[0-9A-Fa-f]{6})$"}
    },
    "aestheticStyle":    {"type": "string"}
  },
  "$defs": {
    "strings": {"type": "array", "items": {"type": "string"}}
  }
}`

const variationsSchemaSrc = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "additionalProperties": false,
  "required": ["variations"],
  "properties": {
    "variations": {
      "type": "array",
      "items": {
        "type": "object",
        "additionalProperties": false,
        "required": ["preHeadline", "headline", "cta"],
        "properties": {
          "preHeadline": {"type": "string"},
          "headline":    {"type": "string", "minLength": 1},
          "subHeadline": {"type": "string"},
          "cta":         {"type": "string", "minLength": 1}
        }
      }
    }
  }
}`

var (
	analysisSchema   = compileSchema("analysis", analysisSchemaSrc)
	variationsSchema = compileSchema("variations", variationsSchemaSrc)
)
