package contract

import "github.com/invopop/jsonschema"

// Unknown fields are stripped by the parsers rather than rejected, so the
// published schemas leave additionalProperties open.
func reflector() *jsonschema.Reflector {
	return &jsonschema.Reflector{
		AllowAdditionalProperties: true,
		DoNotReference:            true,
	}
}

// CreateWorkoutJSONSchema describes CreateWorkoutRequest as a JSON Schema document.
func CreateWorkoutJSONSchema() *jsonschema.Schema {
	return reflector().Reflect(&CreateWorkoutRequest{})
}

// WorkoutJSONSchema describes Workout as a JSON Schema document.
func WorkoutJSONSchema() *jsonschema.Schema {
	return reflector().Reflect(&Workout{})
}
