package contract

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const usersDoc = `openapi: 3.0.3
info:
  title: Users API
  version: 1.2.0
paths:
  /users:
    get:
      operationId: listUsers
      responses:
        "200":
          content:
            application/json:
              schema:
                type: array
                items:
                  $ref: "#/components/schemas/User"
        "5XX":
          content:
            application/json:
              schema:
                $ref: "#/components/schemas/Error"
        default:
          description: fallback
  /users/{id}:
    get:
      operationId: getUser
      parameters:
        - name: id
          in: path
          required: true
          schema:
            type: string
      responses:
        "200":
          content:
            application/json:
              schema:
                $ref: "#/components/schemas/User"
  /users/search:
    get:
      operationId: searchUsers
      responses:
        "200":
          content:
            application/json:
              schema:
                type: object
components:
  schemas:
    User:
      type: object
      required: [id, status]
      additionalProperties: false
      properties:
        id:
          type: string
        status:
          type: string
          enum: [active, inactive]
        manager:
          $ref: "#/components/schemas/User"
    Error:
      type: object
      properties:
        message:
          type: string
`

func loadUsersDoc(t *testing.T) *Document {
	t.Helper()
	doc, err := Load("users.yaml", []byte(usersDoc))
	require.NoError(t, err)
	return doc
}

func TestLoad(t *testing.T) {
	t.Run("indexes entries in declaration order", func(t *testing.T) {
		doc := loadUsersDoc(t)
		assert.Equal(t, "Users API", doc.Title)
		require.Len(t, doc.Entries(), 3)
		assert.Equal(t, "listUsers", doc.Entries()[0].OperationID)
		assert.Equal(t, "getUser", doc.Entries()[1].OperationID)
		assert.Equal(t, "searchUsers", doc.Entries()[2].OperationID)
	})

	t.Run("rejects non-3.x documents", func(t *testing.T) {
		_, err := Load("old.yaml", []byte("swagger: \"2.0\"\npaths: {}\n"))
		var parseErr *ParseError
		require.ErrorAs(t, err, &parseErr)
	})

	t.Run("rejects malformed yaml", func(t *testing.T) {
		_, err := Load("bad.yaml", []byte("openapi: 3.0.0\npaths:\n  - ]["))
		var parseErr *ParseError
		assert.ErrorAs(t, err, &parseErr)
	})

	t.Run("rejects invalid status pattern", func(t *testing.T) {
		bad := `openapi: 3.0.0
paths:
  /x:
    get:
      responses:
        "20a": {}
`
		_, err := Load("bad.yaml", []byte(bad))
		var parseErr *ParseError
		require.ErrorAs(t, err, &parseErr)
		assert.Contains(t, err.Error(), "status pattern")
	})
}

func TestMatch(t *testing.T) {
	doc := loadUsersDoc(t)

	t.Run("literal template beats parameterized", func(t *testing.T) {
		entry, _, err := doc.Match("GET", "/users/search", 200)
		require.NoError(t, err)
		assert.Equal(t, "searchUsers", entry.OperationID)
	})

	t.Run("parameter segment binds", func(t *testing.T) {
		entry, schema, err := doc.Match("GET", "/users/42", 200)
		require.NoError(t, err)
		assert.Equal(t, "getUser", entry.OperationID)
		require.NotNil(t, schema)
		assert.Equal(t, KindObject, schema.Kind)
	})

	t.Run("method is case insensitive", func(t *testing.T) {
		entry, _, err := doc.Match("get", "/users", 200)
		require.NoError(t, err)
		assert.Equal(t, "listUsers", entry.OperationID)
	})

	t.Run("no match names closest candidate", func(t *testing.T) {
		_, _, err := doc.Match("GET", "/users/42/orders", 200)
		var noMatch *NoMatchError
		require.ErrorAs(t, err, &noMatch)
		assert.Equal(t, 2, noMatch.Matched)
		assert.NotEmpty(t, noMatch.Closest)
	})

	t.Run("unknown method", func(t *testing.T) {
		_, _, err := doc.Match("DELETE", "/users", 200)
		var noMatch *NoMatchError
		assert.ErrorAs(t, err, &noMatch)
	})

	t.Run("class wildcard status", func(t *testing.T) {
		entry, schema, err := doc.Match("GET", "/users", 503)
		require.NoError(t, err)
		assert.Equal(t, "listUsers", entry.OperationID)
		require.NotNil(t, schema)
		prop, ok := schema.Property("message")
		require.True(t, ok)
		assert.Equal(t, KindString, prop.Kind)
	})

	t.Run("default status fallback has no schema", func(t *testing.T) {
		_, schema, err := doc.Match("GET", "/users", 404)
		require.NoError(t, err)
		assert.Nil(t, schema)
	})

	t.Run("undocumented status returns entry and typed error", func(t *testing.T) {
		entry, _, err := doc.Match("GET", "/users/42", 404)
		require.NotNil(t, entry)
		var statusErr *StatusNotDocumentedError
		require.ErrorAs(t, err, &statusErr)
		assert.Equal(t, 404, statusErr.Status)
		assert.Equal(t, []string{"200"}, statusErr.Documented)
	})
}

func TestResolveReferences(t *testing.T) {
	doc := loadUsersDoc(t)

	_, schema, err := doc.Match("GET", "/users/7", 200)
	require.NoError(t, err)

	t.Run("resolves ref target structure", func(t *testing.T) {
		assert.Equal(t, KindObject, schema.Kind)
		assert.Equal(t, []string{"id", "status"}, schema.Required)
		assert.Equal(t, AdditionalForbidden, schema.Additional)
	})

	t.Run("enum values decoded", func(t *testing.T) {
		status, ok := schema.Property("status")
		require.True(t, ok)
		assert.Equal(t, []any{"active", "inactive"}, status.Enum)
	})

	t.Run("cycle resolves to self-referential node", func(t *testing.T) {
		manager, ok := schema.Property("manager")
		require.True(t, ok)
		// The self-reference must be the identical cached node, not a
		// copy, so traversal terminates on pointer identity.
		assert.Same(t, schema, manager)
	})

	t.Run("array items share the cached node", func(t *testing.T) {
		_, listSchema, err := doc.Match("GET", "/users", 200)
		require.NoError(t, err)
		require.Equal(t, KindArray, listSchema.Kind)
		assert.Same(t, schema, listSchema.Items)
	})
}

func TestCrossDocumentReferences(t *testing.T) {
	main := `openapi: 3.0.0
info:
  title: Main
paths:
  /pets:
    get:
      responses:
        "200":
          content:
            application/json:
              schema:
                $ref: "shared.yaml#/components/schemas/Pet"
`
	shared := `openapi: 3.0.0
info:
  title: Shared
paths: {}
components:
  schemas:
    Pet:
      type: object
      required: [name]
      properties:
        name:
          type: string
`

	set := NewSet()
	require.NoError(t, set.Add("main.yaml", []byte(main)))
	require.NoError(t, set.Add("shared.yaml", []byte(shared)))
	require.NoError(t, set.Build())

	doc, ok := set.Document("main.yaml")
	require.True(t, ok)
	_, schema, err := doc.Match("GET", "/pets", 200)
	require.NoError(t, err)
	require.NotNil(t, schema)
	assert.Equal(t, []string{"name"}, schema.Required)
}

func TestCrossDocumentReferenceMissing(t *testing.T) {
	main := `openapi: 3.0.0
paths:
  /pets:
    get:
      responses:
        "200":
          content:
            application/json:
              schema:
                $ref: "nowhere.yaml#/components/schemas/Pet"
`
	set := NewSet()
	require.NoError(t, set.Add("main.yaml", []byte(main)))
	err := set.Build()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrExternalDocument))
}

func TestSchemaShapes(t *testing.T) {
	docText := `openapi: 3.1.0
paths:
  /things:
    get:
      responses:
        "200":
          content:
            application/json:
              schema:
                type: object
                properties:
                  label:
                    type: [string, "null"]
                  value:
                    oneOf:
                      - type: integer
                      - type: string
                  tags:
                    type: array
                    items:
                      type: string
                additionalProperties:
                  type: string
`
	doc, err := Load("things.yaml", []byte(docText))
	require.NoError(t, err)
	_, schema, err := doc.Match("GET", "/things", 200)
	require.NoError(t, err)

	t.Run("type array with null sets nullable", func(t *testing.T) {
		label, ok := schema.Property("label")
		require.True(t, ok)
		assert.Equal(t, KindString, label.Kind)
		assert.True(t, label.Nullable)
		assert.True(t, label.AcceptsNull())
	})

	t.Run("oneOf becomes union", func(t *testing.T) {
		value, ok := schema.Property("value")
		require.True(t, ok)
		assert.Equal(t, KindUnion, value.Kind)
		require.Len(t, value.Branches, 2)
		assert.Equal(t, "oneOf(integer|string)", value.Describe())
	})

	t.Run("typed additional properties", func(t *testing.T) {
		assert.Equal(t, AdditionalTyped, schema.Additional)
		require.NotNil(t, schema.AdditionalSchema)
		assert.Equal(t, KindString, schema.AdditionalSchema.Kind)
	})

	t.Run("array items", func(t *testing.T) {
		tags, ok := schema.Property("tags")
		require.True(t, ok)
		assert.Equal(t, KindArray, tags.Kind)
		require.NotNil(t, tags.Items)
		assert.Equal(t, KindString, tags.Items.Kind)
	})
}

func TestFragmentYAML(t *testing.T) {
	doc := loadUsersDoc(t)
	entry := doc.Entries()[1]

	fragment, err := doc.FragmentYAML(entry)
	require.NoError(t, err)
	assert.Contains(t, fragment, "/users/{id}")
	assert.Contains(t, fragment, "operationId: getUser")
}
