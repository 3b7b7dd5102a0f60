package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lajavaness/annotto-sub000/internal/models"
)

func TestCompile_ScalarLeaf(t *testing.T) {
	c := NewCompiler(ItemConfig())

	sql, args, err := c.Compile(Node{Field: "annotated", Operator: "eq", Value: false}, 0)
	require.NoError(t, err)
	assert.Equal(t, "annotated = $1", sql)
	assert.Equal(t, []interface{}{false}, args)
}

func TestCompile_ArgOffset(t *testing.T) {
	c := NewCompiler(ItemConfig())

	sql, args, err := c.Compile(Node{Field: "lastAnnotator", Operator: "neq", Value: "alice"}, 2)
	require.NoError(t, err)
	assert.Equal(t, "last_annotator <> $3", sql)
	assert.Equal(t, []interface{}{"alice"}, args)
}

func TestCompile_AndNumbersArgsSequentially(t *testing.T) {
	c := NewCompiler(ItemConfig())

	sql, args, err := c.Compile(Node{And: []Node{
		{Field: "annotated", Operator: "eq", Value: true},
		{Field: "velocity", Operator: "lte", Value: 120},
	}}, 0)
	require.NoError(t, err)
	assert.Equal(t, "(annotated = $1 AND velocity <= $2)", sql)
	assert.Equal(t, []interface{}{true, 120}, args)
}

func TestCompile_NestedOr(t *testing.T) {
	c := NewCompiler(ItemConfig())

	sql, args, err := c.Compile(Node{Or: []Node{
		{Field: "lastAnnotator", Operator: "eq", Value: "alice"},
		{And: []Node{
			{Field: "annotated", Operator: "eq", Value: false},
			{Field: "seenAt", Operator: "exists", Value: true},
		}},
	}}, 0)
	require.NoError(t, err)
	assert.Equal(t, "(last_annotator = $1 OR (annotated = $2 AND seen_at IS NOT NULL))", sql)
	assert.Len(t, args, 2)
}

func TestCompile_ExistsFalse(t *testing.T) {
	c := NewCompiler(ItemConfig())

	sql, args, err := c.Compile(Node{Field: "annotatedAt", Operator: "exists", Value: false}, 0)
	require.NoError(t, err)
	assert.Equal(t, "annotated_at IS NULL", sql)
	assert.Empty(t, args)
}

func TestCompile_ArrayOperators(t *testing.T) {
	c := NewCompiler(ItemConfig())

	sql, _, err := c.Compile(Node{Field: "tags", Operator: "contains", Value: "urgent"}, 0)
	require.NoError(t, err)
	assert.Equal(t, "tags ? $1", sql)

	sql, _, err = c.Compile(Node{Field: "annotationValues", Operator: "containsAny", Value: []string{"skill", "degree"}}, 0)
	require.NoError(t, err)
	assert.Equal(t, "annotation_values ?| $1", sql)

	sql, _, err = c.Compile(Node{Field: "annotatedBy", Operator: "size", Value: 2}, 0)
	require.NoError(t, err)
	assert.Equal(t, "jsonb_array_length(annotated_by) = $1", sql)
}

// eq on an array field degrades to membership, matching how the
// declarative filters treat multi-valued fields.
func TestCompile_ArrayEqIsMembership(t *testing.T) {
	c := NewCompiler(ItemConfig())

	sql, _, err := c.Compile(Node{Field: "annotatedBy", Operator: "eq", Value: "alice"}, 0)
	require.NoError(t, err)
	assert.Equal(t, "annotated_by ? $1", sql)
}

func TestCompile_UnknownField(t *testing.T) {
	c := NewCompiler(ItemConfig())

	_, _, err := c.Compile(Node{Field: "nope", Operator: "eq", Value: 1}, 0)
	require.Error(t, err)
	apiErr, ok := models.AsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, models.ErrFilterFieldNotFound, apiErr.Message)
}

func TestCompile_UnknownOperator(t *testing.T) {
	c := NewCompiler(ItemConfig())

	_, _, err := c.Compile(Node{Field: "velocity", Operator: "regex", Value: ".*"}, 0)
	require.Error(t, err)
	apiErr, ok := models.AsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, models.ErrFilterOperatorNotFound, apiErr.Message)

	_, _, err = c.Compile(Node{Field: "tags", Operator: "gt", Value: 1}, 0)
	require.Error(t, err)
	apiErr, ok = models.AsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, models.ErrFilterOperatorNotFound, apiErr.Message)
}
