package schema

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"

	"slowlooking/pkg/model"
)

// JSONSchema renders the model-facing JSON Schema of a journey. System-owned
// fields are left out because the model never supplies them.
func JSONSchema() (string, error) {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: true,
		DoNotReference:            true,
	}
	s := reflector.Reflect(&model.Journey{})
	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal journey schema: %w", err)
	}
	return string(b), nil
}
