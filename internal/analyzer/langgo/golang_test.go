package langgo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleGo = `package client

import "fmt"

type Client struct {
	Name  string
	token string
}

func (c *Client) Fetch(url string) (string, error) {
	fmt.Println(url)
	return helper(url)
}

func helper(url string) (string, error) {
	return url, nil
}
`

func TestAnalyzeFunctionsAndMethods(t *testing.T) {
	a := New()
	result := a.Analyze("client.go", []byte(sampleGo))

	require.Len(t, result.Functions, 2)

	var found bool
	for _, fn := range result.Functions {
		if fn.Name != "Fetch" {
			continue
		}
		found = true
		assert.Equal(t, "Client", fn.Receiver)
		assert.True(t, fn.IsPublic, "upper-case function name must be public")
	}
	assert.True(t, found, "method with receiver must be extracted")

	found = false
	for _, fn := range result.Functions {
		if fn.Name != "helper" {
			continue
		}
		found = true
		assert.Empty(t, fn.Receiver)
		assert.False(t, fn.IsPublic, "lower-case function name must be private")
	}
	assert.True(t, found, "top-level function must be extracted")
}

func TestAnalyzeStructFields(t *testing.T) {
	a := New()
	result := a.Analyze("client.go", []byte(sampleGo))

	require.Len(t, result.Structs, 1)
	client := result.Structs[0]
	assert.Equal(t, "Client", client.Name)
	assert.True(t, client.IsPublic)

	require.Len(t, client.Fields, 2, "both struct fields must be extracted")
	var nameField, tokenField bool
	for _, f := range client.Fields {
		switch f.Name {
		case "Name":
			nameField = true
			assert.True(t, f.IsPublic)
			assert.Equal(t, "string", f.Type)
		case "token":
			tokenField = true
			assert.False(t, f.IsPublic)
		}
	}
	assert.True(t, nameField, "exported field must be found")
	assert.True(t, tokenField, "unexported field must be found")
}

func TestAnalyzeImportsAndCalls(t *testing.T) {
	a := New()
	result := a.Analyze("client.go", []byte(sampleGo))

	require.Len(t, result.Imports, 1)
	assert.Equal(t, "fmt", result.Imports[0].ModulePath)

	var calleeNames []string
	for _, c := range result.Calls {
		calleeNames = append(calleeNames, c.Callee)
	}
	assert.Contains(t, calleeNames, "Println")
	assert.Contains(t, calleeNames, "helper")
}

func TestAnalyzeMalformedGoFallsBack(t *testing.T) {
	a := New()
	malformed := []byte("func broken(url string -> {\n")
	result := a.Analyze("broken.go", malformed)

	assert.Equal(t, "go", result.Language)
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
	assert.Equal(t, "go", a.Language())
	assert.Equal(t, []string{".go"}, a.Extensions())
}
