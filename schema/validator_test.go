package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSchema = `{
  "type": "object",
  "additionalProperties": false,
  "properties": {
    "name": {"type": "string", "minLength": 1},
    "count": {"type": "integer", "minimum": 0}
  }
}`

func TestValidator(t *testing.T) {
	v, err := NewValidator("test.json", []byte(testSchema))
	require.NoError(t, err)

	t.Run("valid document", func(t *testing.T) {
		assert.NoError(t, v.Validate(map[string]interface{}{"name": "x", "count": 3}))
	})

	t.Run("go struct input", func(t *testing.T) {
		doc := struct {
			Name string `json:"name"`
		}{Name: "x"}
		assert.NoError(t, v.Validate(doc))
	})

	t.Run("wrong type", func(t *testing.T) {
		err := v.Validate(map[string]interface{}{"count": "three"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "/count")
	})

	t.Run("unknown property", func(t *testing.T) {
		err := v.Validate(map[string]interface{}{"extra": true})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "schema validation failed")
	})
}

func TestNewValidatorRejectsBadSchema(t *testing.T) {
	_, err := NewValidator("bad.json", []byte(`{"type": 12}`))
	assert.Error(t, err)
}
