// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

// buildSchema is the structural contract for build.yml, checked before the
// file is decoded into Module so that errors name the offending field.
var buildSchema = map[string]interface{}{
	"type":                 "object",
	"additionalProperties": false,
	"properties": map[string]interface{}{
		"repository": map[string]interface{}{"type": "string"},
		"args": map[string]interface{}{
			"type":                 "object",
			"additionalProperties": map[string]interface{}{"type": "string"},
		},
		"variants": map[string]interface{}{
			"type": "array",
			"items": map[string]interface{}{
				"type":                 "object",
				"additionalProperties": false,
				"required":             []interface{}{"tag"},
				"properties": map[string]interface{}{
					"tag": map[string]interface{}{"type": "string"},
					"aliases": map[string]interface{}{
						"type":  "array",
						"items": map[string]interface{}{"type": "string"},
					},
					"repository": map[string]interface{}{"type": "string"},
					"args": map[string]interface{}{
						"type":                 "object",
						"additionalProperties": map[string]interface{}{"type": "string"},
					},
				},
			},
		},
	},
}

// validate checks raw build.yml bytes against buildSchema.
func validate(data []byte) error {
	var doc map[string]interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("error parsing yaml: %w", err)
	}

	schemaLoader := gojsonschema.NewGoLoader(buildSchema)
	documentLoader := gojsonschema.NewGoLoader(doc)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("schema validation error: %w", err)
	}

	if !result.Valid() {
		msg := "configuration validation failed:"
		for _, resultErr := range result.Errors() {
			msg += fmt.Sprintf("\n- %s", resultErr)
		}
		return fmt.Errorf("%s", msg)
	}

	return nil
}
