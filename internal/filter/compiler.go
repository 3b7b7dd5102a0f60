package filter

import (
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/lajavaness/annotto-sub000/internal/models"
)

// Field maps one declarative filter field onto a storage column. Array
// fields live in jsonb columns and get the jsonb membership operators.
type Field struct {
	Column string
	Array  bool
}

// Config is the field catalogue a compiler resolves against. It is
// passed explicitly so callers and tests never share package state.
type Config struct {
	Fields map[string]Field
}

// ItemConfig maps the filterable item fields used by next-item selection
// and export scoping.
func ItemConfig() Config {
	return Config{Fields: map[string]Field{
		"uuid":             {Column: "uuid"},
		"annotated":        {Column: "annotated"},
		"lastAnnotator":    {Column: "last_annotator"},
		"velocity":         {Column: "velocity"},
		"annotatedAt":      {Column: "annotated_at"},
		"seenAt":           {Column: "seen_at"},
		"annotatedBy":      {Column: "annotated_by", Array: true},
		"annotationValues": {Column: "annotation_values", Array: true},
		"tags":             {Column: "tags", Array: true},
	}}
}

// Node is one vertex of the declarative filter tree: either a boolean
// combinator (And/Or populated) or a leaf operator.
type Node struct {
	And      []Node      `json:"and,omitempty"`
	Or       []Node      `json:"or,omitempty"`
	Field    string      `json:"field,omitempty"`
	Operator string      `json:"operator,omitempty"`
	Value    interface{} `json:"value,omitempty"`
}

// Compiler turns filter trees into storage-native WHERE fragments.
type Compiler struct {
	config Config
}

// NewCompiler builds a compiler over the given field catalogue.
func NewCompiler(config Config) *Compiler {
	return &Compiler{config: config}
}

// Compile renders the tree as a parenthesized SQL condition with
// positional args starting at argOffset+1, so callers can prepend their
// own bindings.
func (c *Compiler) Compile(node Node, argOffset int) (string, []interface{}, error) {
	sql, args, _, err := c.compile(node, argOffset)
	return sql, args, err
}

func (c *Compiler) compile(node Node, offset int) (string, []interface{}, int, error) {
	switch {
	case len(node.And) > 0:
		return c.combine(node.And, "AND", offset)
	case len(node.Or) > 0:
		return c.combine(node.Or, "OR", offset)
	default:
		return c.leaf(node, offset)
	}
}

func (c *Compiler) combine(children []Node, op string, offset int) (string, []interface{}, int, error) {
	parts := make([]string, 0, len(children))
	var args []interface{}
	for _, child := range children {
		sql, childArgs, next, err := c.compile(child, offset)
		if err != nil {
			return "", nil, 0, err
		}
		parts = append(parts, sql)
		args = append(args, childArgs...)
		offset = next
	}
	return "(" + strings.Join(parts, " "+op+" ") + ")", args, offset, nil
}

func (c *Compiler) leaf(node Node, offset int) (string, []interface{}, int, error) {
	field, ok := c.config.Fields[node.Field]
	if !ok {
		return "", nil, 0, models.NewNotFoundError(models.ErrFilterFieldNotFound, node.Field)
	}

	if field.Array {
		return c.arrayLeaf(field, node, offset)
	}

	switch node.Operator {
	case "eq":
		return fmt.Sprintf("%s = $%d", field.Column, offset+1), []interface{}{node.Value}, offset + 1, nil
	case "neq":
		return fmt.Sprintf("%s <> $%d", field.Column, offset+1), []interface{}{node.Value}, offset + 1, nil
	case "gt":
		return fmt.Sprintf("%s > $%d", field.Column, offset+1), []interface{}{node.Value}, offset + 1, nil
	case "gte":
		return fmt.Sprintf("%s >= $%d", field.Column, offset+1), []interface{}{node.Value}, offset + 1, nil
	case "lt":
		return fmt.Sprintf("%s < $%d", field.Column, offset+1), []interface{}{node.Value}, offset + 1, nil
	case "lte":
		return fmt.Sprintf("%s <= $%d", field.Column, offset+1), []interface{}{node.Value}, offset + 1, nil
	case "in":
		return fmt.Sprintf("%s = ANY($%d)", field.Column, offset+1), []interface{}{pq.Array(node.Value)}, offset + 1, nil
	case "nin":
		return fmt.Sprintf("NOT (%s = ANY($%d))", field.Column, offset+1), []interface{}{pq.Array(node.Value)}, offset + 1, nil
	case "exists":
		if wanted, ok := node.Value.(bool); ok && !wanted {
			return field.Column + " IS NULL", nil, offset, nil
		}
		return field.Column + " IS NOT NULL", nil, offset, nil
	default:
		return "", nil, 0, models.NewNotFoundError(models.ErrFilterOperatorNotFound, node.Operator)
	}
}

func (c *Compiler) arrayLeaf(field Field, node Node, offset int) (string, []interface{}, int, error) {
	switch node.Operator {
	case "contains", "eq":
		return fmt.Sprintf("%s ? $%d", field.Column, offset+1), []interface{}{node.Value}, offset + 1, nil
	case "ncontains", "neq":
		return fmt.Sprintf("NOT (%s ? $%d)", field.Column, offset+1), []interface{}{node.Value}, offset + 1, nil
	case "containsAny", "in":
		return fmt.Sprintf("%s ?| $%d", field.Column, offset+1), []interface{}{pq.Array(node.Value)}, offset + 1, nil
	case "containsAll":
		return fmt.Sprintf("%s ?& $%d", field.Column, offset+1), []interface{}{pq.Array(node.Value)}, offset + 1, nil
	case "size":
		return fmt.Sprintf("jsonb_array_length(%s) = $%d", field.Column, offset+1), []interface{}{node.Value}, offset + 1, nil
	default:
		return "", nil, 0, models.NewNotFoundError(models.ErrFilterOperatorNotFound, node.Operator)
	}
}
