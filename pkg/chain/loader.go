package chain

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/campushq/approvia/pkg/models"
	"github.com/xeipuuv/gojsonschema"
)

// configSchema validates chain configuration files before any of their
// content reaches routing. Each chain must be a non-empty list of known roles.
const configSchema = `{
	"type": "object",
	"required": ["chains"],
	"properties": {
		"chains": {
			"type": "object",
			"minProperties": 1,
			"additionalProperties": {
				"type": "array",
				"minItems": 1,
				"items": {
					"type": "string",
					"enum": ["staff", "hod", "principal", "admin"]
				}
			}
		}
	}
}`

type chainConfig struct {
	Chains map[string][]string `json:"chains"`
}

var knownRequestTypes = map[models.RequestType]bool{
	models.RequestTypeStudent:   true,
	models.RequestTypeStaff:     true,
	models.RequestTypeHOD:       true,
	models.RequestTypePrincipal: true,
}

// Load reads a chain definition from a JSON config file, validating it
// against the embedded schema. Request types absent from the file keep their
// default chain, so a config may override a single type.
func Load(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read chain config %s: %w", path, err)
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(configSchema),
		gojsonschema.NewBytesLoader(data),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to validate chain config: %w", err)
	}

	if !result.Valid() {
		details := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			details = append(details, desc.String())
		}

		return nil, fmt.Errorf("invalid chain config %s: %s", path, strings.Join(details, "; "))
	}

	var config chainConfig
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse chain config: %w", err)
	}

	chains := Default().chains
	for rawType, rawRoles := range config.Chains {
		requestType := models.RequestType(rawType)
		if !knownRequestTypes[requestType] {
			return nil, fmt.Errorf("invalid chain config %s: unknown request type %q", path, rawType)
		}

		roles := make([]models.Role, 0, len(rawRoles))
		for _, rawRole := range rawRoles {
			roles = append(roles, models.Role(rawRole))
		}

		chains[requestType] = roles
	}

	return NewDefinition(chains), nil
}
