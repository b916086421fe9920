package contracts

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"strings"

	"cost-engine-service/schemas"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	EventPropertyValuesUpdated   = "PropertyValuesUpdatedEvent"
	EventCostFactorSourceChanged = "CostFactorSourceChangedEvent"
	DocumentCostFactors          = "CostFactors"
	SchemaVersion1               = "1.0.0"
)

var compiledSchemas = make(map[string]*jsonschema.Schema)

func init() {
	compiler := jsonschema.NewCompiler()
	compiler.AssertFormat = true

	var paths []string
	err := fs.WalkDir(schemas.SchemasFS, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".json") {
			return nil
		}
		file, err := schemas.SchemasFS.Open(path)
		if err != nil {
			return err
		}
		defer file.Close()
		// resources are registered first so schemas can $ref each other
		if err := compiler.AddResource(path, file); err != nil {
			return fmt.Errorf("add schema resource %s: %w", path, err)
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		panic(fmt.Sprintf("contracts: loading schemas: %v", err))
	}

	for _, path := range paths {
		schema, err := compiler.Compile(path)
		if err != nil {
			panic(fmt.Sprintf("contracts: compiling schema %s: %v", path, err))
		}
		compiledSchemas[generateKeyFromPath(path)] = schema
	}
}

// generateKeyFromPath turns "events/property-values-updated/v1.json" into
// "PropertyValuesUpdatedEvent/1.0.0" and "cost-factors/v1.json" into
// "CostFactors/1.0.0".
func generateKeyFromPath(path string) string {
	trimmed := strings.TrimSuffix(path, ".json")
	isEvent := strings.HasPrefix(trimmed, "events/")
	trimmed = strings.TrimPrefix(trimmed, "events/")

	parts := strings.Split(trimmed, "/")
	if len(parts) != 2 {
		return trimmed
	}

	caser := cases.Title(language.English)
	var name strings.Builder
	for _, p := range strings.Split(parts[0], "-") {
		name.WriteString(caser.String(p))
	}
	if isEvent {
		name.WriteString("Event")
	}

	version := strings.Replace(parts[1], "v", "", 1) + ".0.0"
	return fmt.Sprintf("%s/%s", name.String(), version)
}

// Validate checks body against the named schema version.
func Validate(name, version string, body []byte) error {
	key := fmt.Sprintf("%s/%s", name, version)
	schema, ok := compiledSchemas[key]
	if !ok {
		return fmt.Errorf("schema for '%s' version '%s' not found", name, version)
	}

	var v interface{}
	if err := json.Unmarshal(body, &v); err != nil {
		return fmt.Errorf("message body is not a valid JSON: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("JSON schema validation failed: %w", err)
	}
	return nil
}

// ValidateEvent validates a RabbitMQ message body by its event type and version headers.
func ValidateEvent(eventType, eventVersion string, body []byte) error {
	return Validate(eventType, eventVersion, body)
}

// FactorSetValidator checks factor-set documents against the cost-factors schema.
type FactorSetValidator struct{}

func NewFactorSetValidator() *FactorSetValidator { return &FactorSetValidator{} }

func (FactorSetValidator) ValidateFactorSet(raw []byte) error {
	return Validate(DocumentCostFactors, SchemaVersion1, raw)
}
