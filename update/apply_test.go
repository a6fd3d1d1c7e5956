package update

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/specdrift/contract"
	"github.com/c360studio/specdrift/reason"
)

const ordersDoc = `openapi: 3.0.0
info:
  title: Orders
  version: 1.0.0
paths:
  /orders:
    get:
      # primary listing endpoint
      operationId: listOrders
      responses:
        "200":
          content:
            application/json:
              schema:
                $ref: "#/components/schemas/Order"
components:
  schemas:
    Order:
      type: object
      required: [id, status]
      properties:
        id:
          type: integer
        status:
          type: string
          enum: [open, closed]
`

func loadOrders(t *testing.T) *contract.Document {
	t.Helper()
	doc, err := contract.Load("orders.yaml", []byte(ordersDoc))
	require.NoError(t, err)
	return doc
}

func TestApplyTextChainsBatches(t *testing.T) {
	doc := loadOrders(t)

	first, err := Apply(doc, []reason.ChangeInstruction{
		{Target: "/components/schemas/Order/properties/status/enum/-", Op: reason.OpAdd, Value: "shipped"},
	})
	require.NoError(t, err)
	require.Equal(t, 1, first.Applied())

	second, err := ApplyText("orders.yaml", first.Text, []reason.ChangeInstruction{
		{Target: "/components/schemas/Order/properties/status/enum/-", Op: reason.OpAdd, Value: "archived"},
	})
	require.NoError(t, err)
	require.Equal(t, 1, second.Applied())

	reloaded, err := contract.Load("orders.yaml", second.Text)
	require.NoError(t, err)
	_, schema, err := reloaded.Match("GET", "/orders", 200)
	require.NoError(t, err)
	status, ok := schema.Property("status")
	require.True(t, ok)
	assert.Equal(t, []any{"open", "closed", "shipped", "archived"}, status.Enum,
		"the first batch's edit survives the second")
}

func TestApplyConflictLaterWins(t *testing.T) {
	doc := loadOrders(t)
	target := "/components/schemas/Order/properties/status/enum"

	updated, err := Apply(doc, []reason.ChangeInstruction{
		{Target: target, Op: reason.OpReplace, Value: []string{"open", "closed", "shipped"}},
		{Target: target, Op: reason.OpReplace, Value: []string{"open", "closed", "archived"}},
	})
	require.NoError(t, err)

	require.Len(t, updated.Audit, 2)
	assert.Equal(t, OutcomeDiscarded, updated.Audit[0].Outcome)
	assert.Contains(t, updated.Audit[0].Reason, "superseded")
	assert.Equal(t, OutcomeApplied, updated.Audit[1].Outcome)
	assert.Equal(t, 1, updated.Applied())

	reloaded, err := contract.Load("orders.yaml", updated.Text)
	require.NoError(t, err)
	_, schema, err := reloaded.Match("GET", "/orders", 200)
	require.NoError(t, err)
	status, ok := schema.Property("status")
	require.True(t, ok)
	assert.Equal(t, []any{"open", "closed", "archived"}, status.Enum)
}

func TestApplyAddRemove(t *testing.T) {
	doc := loadOrders(t)

	updated, err := Apply(doc, []reason.ChangeInstruction{
		{
			Target: "/components/schemas/Order/properties/created_at",
			Op:     reason.OpAdd,
			Value:  map[string]any{"type": "string", "format": "date-time"},
		},
		// Drops "status" from the required list.
		{Target: "/components/schemas/Order/required/1", Op: reason.OpRemove},
		{Target: "/components/schemas/Order/properties/status/enum/-", Op: reason.OpAdd, Value: "archived"},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, updated.Applied())

	reloaded, err := contract.Load("orders.yaml", updated.Text)
	require.NoError(t, err)
	_, schema, err := reloaded.Match("GET", "/orders", 200)
	require.NoError(t, err)

	created, ok := schema.Property("created_at")
	require.True(t, ok)
	assert.Equal(t, contract.KindString, created.Kind)

	assert.Equal(t, []string{"id"}, schema.Required)

	status, ok := schema.Property("status")
	require.True(t, ok)
	assert.Equal(t, []any{"open", "closed", "archived"}, status.Enum)
}

func TestApplyTargetNotFound(t *testing.T) {
	doc := loadOrders(t)

	updated, err := Apply(doc, []reason.ChangeInstruction{
		{Target: "/components/schemas/Missing/type", Op: reason.OpReplace, Value: "object"},
		{Target: "/info/title", Op: reason.OpReplace, Value: "Orders API"},
	})
	require.NoError(t, err)

	require.Len(t, updated.Audit, 2)
	assert.Equal(t, OutcomeDiscarded, updated.Audit[0].Outcome)
	assert.Equal(t, "target not found", updated.Audit[0].Reason)
	assert.Equal(t, OutcomeApplied, updated.Audit[1].Outcome)
	assert.Contains(t, string(updated.Text), "Orders API")
}

func TestApplyEscapedPointerTokens(t *testing.T) {
	doc := loadOrders(t)

	updated, err := Apply(doc, []reason.ChangeInstruction{
		{Target: "/paths/~1orders/get/operationId", Op: reason.OpReplace, Value: "listAllOrders"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, updated.Applied())
	assert.Contains(t, string(updated.Text), "listAllOrders")
}

func TestApplyPreservesUntouchedRegions(t *testing.T) {
	doc := loadOrders(t)

	updated, err := Apply(doc, []reason.ChangeInstruction{
		{Target: "/info/version", Op: reason.OpReplace, Value: "1.1.0"},
	})
	require.NoError(t, err)

	text := string(updated.Text)
	assert.Contains(t, text, "# primary listing endpoint")
	assert.Contains(t, text, "required: [id, status]", "flow style survives")
	assert.Less(t, strings.Index(text, "title: Orders"), strings.Index(text, "version: 1.1.0"),
		"key order survives")
}

func TestApplyDoesNotMutateDocument(t *testing.T) {
	doc := loadOrders(t)
	before := string(doc.Text())

	_, err := Apply(doc, []reason.ChangeInstruction{
		{Target: "/info/title", Op: reason.OpReplace, Value: "changed"},
	})
	require.NoError(t, err)
	assert.Equal(t, before, string(doc.Text()))
}
