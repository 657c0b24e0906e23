package langpython

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePython = `import os
from collections import OrderedDict

class Widget:
    def __init__(self, name):
        self.name = name

    def render(self):
        return helper(self.name)

    def _private_helper(self):
        pass

def helper(name):
    return name.upper()
`

func TestVisibilityRules(t *testing.T) {
	assert.True(t, IsPublic("render"), "plain name is public")
	assert.True(t, IsPublic("__init__"), "dunder method is public despite leading underscores")
	assert.False(t, IsPublic("_private_helper"), "single leading underscore is private")
	assert.False(t, IsPublic("__hidden"), "double leading underscore without trailing is private (name-mangled)")
}

func TestAnalyzeClassAndMethods(t *testing.T) {
	a := New()
	result := a.Analyze("widget.py", []byte(samplePython))

	require.Len(t, result.Structs, 1)
	assert.Equal(t, "Widget", result.Structs[0].Name)
	assert.True(t, result.Structs[0].IsPublic)

	names := map[string]bool{}
	for _, fn := range result.Functions {
		names[fn.Name] = fn.IsPublic
	}
	assert.True(t, names["__init__"], "dunder init must be public")
	assert.True(t, names["render"])
	assert.False(t, names["_private_helper"])
	assert.True(t, names["helper"])
}

func TestAnalyzeImports(t *testing.T) {
	a := New()
	result := a.Analyze("widget.py", []byte(samplePython))

	require.Len(t, result.Imports, 2)
	assert.Equal(t, "os", result.Imports[0].ModulePath)
	assert.Equal(t, "collections", result.Imports[1].ModulePath)
	assert.Contains(t, result.Imports[1].Items, "OrderedDict")
}

func TestAnalyzeMalformedPythonFallsBack(t *testing.T) {
	a := New()
	malformed := []byte("def broken(x\n    return x\n")
	result := a.Analyze("broken.py", malformed)

	assert.Equal(t, "python", result.Language)
	found := false
	for _, fn := range result.Functions {
		if fn.Name == "broken" {
			found = true
		}
	}
	assert.True(t, found, "fallback extraction must still recover the def header")
}
