package labelserver

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// UpdateLabelSchema describes the POST /update_label body
const UpdateLabelSchema = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "object",
	"required": ["row", "column", "labelName", "value"],
	"properties": {
		"row": {"type": "integer"},
		"column": {"not": {"type": "null"}},
		"labelName": {"type": "string"},
		"value": {"not": {"type": "null"}}
	}
}`

// AddColumnSchema describes the POST /add_column body
const AddColumnSchema = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "object",
	"required": ["column"],
	"properties": {
		"column": {"type": "string", "minLength": 1}
	}
}`

// payloadValidator checks request bodies against the endpoint schemas
type payloadValidator struct {
	updateLabel *gojsonschema.Schema
	addColumn   *gojsonschema.Schema
}

func newPayloadValidator() (*payloadValidator, error) {
	updateLabel, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(UpdateLabelSchema))
	if err != nil {
		return nil, fmt.Errorf("failed to compile update_label schema: %w", err)
	}

	addColumn, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(AddColumnSchema))
	if err != nil {
		return nil, fmt.Errorf("failed to compile add_column schema: %w", err)
	}

	return &payloadValidator{
		updateLabel: updateLabel,
		addColumn:   addColumn,
	}, nil
}

// validate returns nil when body satisfies schema, otherwise an error
// listing every violation
func validate(schema *gojsonschema.Schema, body []byte) error {
	result, err := schema.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return fmt.Errorf("schema validation error: %w", err)
	}

	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, resultErr := range result.Errors() {
			msgs = append(msgs, resultErr.String())
		}
		return fmt.Errorf("%s", strings.Join(msgs, "; "))
	}

	return nil
}
