package langts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleTS = `import { readFile } from "fs";

export class Greeter {
    public name: string;
    private secret: string;

    greet(): string {
        return format(this.name);
    }
}

export async function format(name: string): Promise<string> {
    return helper(name);
}

function helper(name: string): string {
    return name;
}
`

func TestNewTypeScriptLanguageAndExtensions(t *testing.T) {
	a := NewTypeScript()
	assert.Equal(t, "typescript", a.Language())
	assert.ElementsMatch(t, []string{".ts", ".tsx"}, a.Extensions())
}

func TestNewJavaScriptLanguageAndExtensions(t *testing.T) {
	a := NewJavaScript()
	assert.Equal(t, "javascript", a.Language())
	assert.ElementsMatch(t, []string{".js", ".jsx", ".mjs", ".cjs"}, a.Extensions())
}

func TestAnalyzeExportedAsyncFunction(t *testing.T) {
	a := NewTypeScript()
	result := a.Analyze("greeter.ts", []byte(sampleTS))

	var found bool
	for _, fn := range result.Functions {
		if fn.Name != "format" {
			continue
		}
		found = true
		assert.True(t, fn.IsPublic, "export async function must be public")
		assert.True(t, fn.IsAsync)
	}
	assert.True(t, found, "format() must be extracted")
}

func TestAnalyzeClassFieldVisibility(t *testing.T) {
	a := NewTypeScript()
	result := a.Analyze("greeter.ts", []byte(sampleTS))

	require.Len(t, result.Structs, 1)
	greeter := result.Structs[0]
	assert.Equal(t, "Greeter", greeter.Name)
	assert.True(t, greeter.IsPublic, "exported class is public")

	fieldVisibility := map[string]bool{}
	for _, f := range greeter.Fields {
		fieldVisibility[f.Name] = f.IsPublic
	}
	assert.True(t, fieldVisibility["name"])
	assert.False(t, fieldVisibility["secret"])
}

func TestAnalyzeImportsAndExports(t *testing.T) {
	a := NewTypeScript()
	result := a.Analyze("greeter.ts", []byte(sampleTS))

	require.Len(t, result.Imports, 1)
	assert.Equal(t, "fs", result.Imports[0].ModulePath)
	assert.Contains(t, result.Imports[0].Items, "readFile")

	require.NotEmpty(t, result.Exports)
}

func TestAnalyzeMalformedTypeScriptFallsBack(t *testing.T) {
	a := NewTypeScript()
	malformed := []byte("export function broken(x: string {\n")
	result := a.Analyze("broken.ts", malformed)

	assert.Equal(t, "typescript", result.Language)
	found := false
	for _, fn := range result.Functions {
		if fn.Name == "broken" {
			found = true
		}
	}
	assert.True(t, found, "fallback extraction must still recover the function name")
}
