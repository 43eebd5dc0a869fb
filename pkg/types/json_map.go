package types

// JSONMap is a free-form JSON object stored in a jsonb column via the GORM
// json serializer.
type JSONMap map[string]any
