package mcp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStringArg(t *testing.T) {
	t.Parallel()

	t.Run("required string present", func(t *testing.T) {
		argsMap := map[string]interface{}{
			"manifest_path": "Nargo.toml",
		}
		result, err := parseStringArg(argsMap, "manifest_path", true)
		require.NoError(t, err)
		assert.Equal(t, "Nargo.toml", result)
	})

	t.Run("required string missing", func(t *testing.T) {
		argsMap := map[string]interface{}{}
		result, err := parseStringArg(argsMap, "manifest_path", true)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "manifest_path parameter is required")
		assert.Empty(t, result)
	})

	t.Run("required string empty", func(t *testing.T) {
		argsMap := map[string]interface{}{
			"manifest_path": "",
		}
		result, err := parseStringArg(argsMap, "manifest_path", true)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "manifest_path cannot be empty")
		assert.Empty(t, result)
	})

	t.Run("optional string missing", func(t *testing.T) {
		argsMap := map[string]interface{}{}
		result, err := parseStringArg(argsMap, "manifest_path", false)
		require.NoError(t, err)
		assert.Empty(t, result)
	})

	t.Run("optional string empty", func(t *testing.T) {
		argsMap := map[string]interface{}{
			"manifest_path": "",
		}
		result, err := parseStringArg(argsMap, "manifest_path", false)
		require.NoError(t, err)
		assert.Empty(t, result)
	})

	t.Run("wrong type", func(t *testing.T) {
		argsMap := map[string]interface{}{
			"manifest_path": 42,
		}
		result, err := parseStringArg(argsMap, "manifest_path", true)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "manifest_path must be a string")
		assert.Empty(t, result)
	})
}


func TestParseArrayArg(t *testing.T) {
	t.Parallel()

	t.Run("array present", func(t *testing.T) {
		argsMap := map[string]interface{}{
			"entry_points": []interface{}{"main", "start", "test"},
		}
		result := parseArrayArg(argsMap, "entry_points")
		require.NotNil(t, result)
		assert.Equal(t, []string{"main", "start", "test"}, result)
	})

	t.Run("array missing", func(t *testing.T) {
		argsMap := map[string]interface{}{}
		result := parseArrayArg(argsMap, "entry_points")
		assert.Nil(t, result)
	})

	t.Run("empty array", func(t *testing.T) {
		argsMap := map[string]interface{}{
			"entry_points": []interface{}{},
		}
		result := parseArrayArg(argsMap, "entry_points")
		require.NotNil(t, result)
		assert.Empty(t, result)
	})

	t.Run("mixed types", func(t *testing.T) {
		argsMap := map[string]interface{}{
			"entry_points": []interface{}{"main", 42, "start", true, "test"},
		}
		result := parseArrayArg(argsMap, "entry_points")
		require.NotNil(t, result)
		// Only string elements should be included
		assert.Equal(t, []string{"main", "start", "test"}, result)
	})

	t.Run("wrong type", func(t *testing.T) {
		argsMap := map[string]interface{}{
			"entry_points": "not-an-array",
		}
		result := parseArrayArg(argsMap, "entry_points")
		assert.Nil(t, result)
	})
}
