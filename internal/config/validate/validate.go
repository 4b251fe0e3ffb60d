package validate

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"sigs.k8s.io/yaml"
)

//go:embed schema/*.json
var schemaFS embed.FS

const (
	ConfigSchemaName        = "artagon-config.schema.json"
	AgentManifestSchemaName = "agent-manifest.schema.json"
)

// ValidateAgainstSchema compiles schema under name and validates the JSON
// document data against it. ref selects a sub-schema (for example
// "#/definitions/section"); empty means the root.
func ValidateAgainstSchema(name string, schema, data []byte, ref string) error {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, bytes.NewReader(schema)); err != nil {
		return fmt.Errorf("loading schema %s: %w", name, err)
	}
	sch, err := compiler.Compile(name + ref)
	if err != nil {
		return fmt.Errorf("compiling schema %s: %w", name, err)
	}

	doc, err := decodeJSON(data)
	if err != nil {
		return err
	}
	if err := sch.Validate(doc); err != nil {
		var verr *jsonschema.ValidationError
		if errors.As(err, &verr) {
			return fmt.Errorf("schema validation against %s failed: %v", name, verr)
		}
		return fmt.Errorf("validating against %s: %w", name, err)
	}
	return nil
}

// ValidateConfigJSON validates an .artagon.yml document already converted to JSON.
func ValidateConfigJSON(data []byte) error {
	return validateEmbedded(ConfigSchemaName, data)
}

// ValidateAgentManifestJSON validates an agent manifest in JSON form.
func ValidateAgentManifestJSON(data []byte) error {
	return validateEmbedded(AgentManifestSchemaName, data)
}

// ValidateConfigYAML converts a YAML document to JSON and validates it as
// configuration. The JSON form is returned for callers that decode it.
func ValidateConfigYAML(data []byte) ([]byte, error) {
	jsonData, err := yaml.YAMLToJSON(data)
	if err != nil {
		return nil, fmt.Errorf("converting YAML to JSON: %w", err)
	}
	// A document holding only comments converts to null.
	if bytes.Equal(bytes.TrimSpace(jsonData), []byte("null")) {
		jsonData = []byte("{}")
	}
	if err := ValidateConfigJSON(jsonData); err != nil {
		return nil, err
	}
	return jsonData, nil
}

// Schema returns the embedded schema with the given file name.
func Schema(name string) ([]byte, error) {
	data, err := schemaFS.ReadFile("schema/" + name)
	if err != nil {
		return nil, fmt.Errorf("unknown schema %s: %w", name, err)
	}
	return data, nil
}

func validateEmbedded(name string, data []byte) error {
	schema, err := Schema(name)
	if err != nil {
		return err
	}
	return ValidateAgainstSchema(name, schema, data, "")
}

func decodeJSON(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("invalid JSON document: %w", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("invalid JSON document: trailing data")
	}
	return doc, nil
}
