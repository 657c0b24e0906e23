package langrust

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleRust = `use std::collections::HashMap;

pub struct Client {
    pub name: String,
    token: String,
}

pub async fn fetch(url: &str) -> Result<String, Error> {
    let client = Client::new();
    client.get(url);
    helper(url)
}

fn helper(url: &str) -> String {
    url.to_string()
}
`

func TestAnalyzePublicAsyncFunction(t *testing.T) {
	a := New()
	result := a.Analyze("client.rs", []byte(sampleRust))

	require.Len(t, result.Functions, 2)
	fetch := result.Functions[0]
	assert.Equal(t, "fetch", fetch.Name)
	assert.True(t, fetch.IsPublic, "pub fn must be recorded as public")
	assert.True(t, fetch.IsAsync, "async fn must be recorded as async")
}

func TestAnalyzeStructVisibility(t *testing.T) {
	a := New()
	result := a.Analyze("client.rs", []byte(sampleRust))

	require.Len(t, result.Structs, 1)
	client := result.Structs[0]
	assert.Equal(t, "Client", client.Name)
	assert.True(t, client.IsPublic)
	require.Len(t, client.Fields, 2)
	assert.True(t, client.Fields[0].IsPublic, "pub field must be public")
	assert.False(t, client.Fields[1].IsPublic, "unmarked field is private")
}

func TestAnalyzeUseDeclaration(t *testing.T) {
	a := New()
	result := a.Analyze("client.rs", []byte(sampleRust))

	require.Len(t, result.Imports, 1)
	assert.Equal(t, "std::collections::HashMap", result.Imports[0].ModulePath)
}

func TestAnalyzeCallSites(t *testing.T) {
	a := New()
	result := a.Analyze("client.rs", []byte(sampleRust))

	var calleeNames []string
	for _, c := range result.Calls {
		calleeNames = append(calleeNames, c.Callee)
	}
	assert.Contains(t, calleeNames, "helper")
	assert.Contains(t, calleeNames, "get")
}

func TestAnalyzeMalformedInputFallsBack(t *testing.T) {
	a := New()
	malformed := []byte("pub fn broken(url: &str -> {\n")
	result := a.Analyze("broken.rs", malformed)

	assert.Equal(t, "rust", result.Language)
	// Even with a syntax error, the well-formed header is still extracted.
	found := false
	for _, fn := range result.Functions {
		if fn.Name == "broken" {
			found = true
		}
	}
	assert.True(t, found, "fallback extraction must still recover the function name")
}

func TestLanguageAndExtensions(t *testing.T) {
	a := New()
	assert.Equal(t, "rust", a.Language())
	assert.Equal(t, []string{".rs"}, a.Extensions())
}
