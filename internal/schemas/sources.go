package schemas

import _ "embed"

// sourceCatalogSchema is the JSON Schema for the source catalog file.
//
//go:embed sources.schema.json
var sourceCatalogSchema string

// ValidateSourceCatalog validates raw source catalog JSON against the
// embedded schema before it is parsed into descriptors.
func ValidateSourceCatalog(data []byte) error {
	return ValidateJSONString(sourceCatalogSchema, string(data))
}
