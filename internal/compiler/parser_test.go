package compiler_test

import (
	"testing"

	"github.com/aretw0/ivy/internal/compiler"
	"github.com/aretw0/ivy/internal/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParser_YAML(t *testing.T) {
	sc, err := compiler.NewParser().Parse([]byte(`
name: groceries
shard: lists
records:
  list: {title: Groceries, w: 2}
sequences:
  items: [milk, eggs]
derived:
  - {record: list, key: double, expr: "w * 2"}
tree:
  tag: ul
  attrs: list
  children: [items]
steps:
  - {op: append, sequence: items, value: bread}
  - {op: write, record: list, key: title, value: Shopping}
`))
	require.NoError(t, err)

	assert.Equal(t, "groceries", sc.Name)
	assert.Equal(t, map[string]any{"title": "Groceries", "w": 2}, sc.Records["list"])
	assert.Equal(t, []any{"milk", "eggs"}, sc.Sequences["items"])
	assert.Equal(t, []dto.Derivation{{Record: "list", Key: "double", Expr: "w * 2"}}, sc.Derived)
	assert.Equal(t, &dto.Tree{Tag: "ul", Attrs: "list", Children: []string{"items"}}, sc.Tree)
	require.Len(t, sc.Steps, 2)
	assert.Equal(t, dto.Step{Op: dto.OpAppend, Sequence: "items", Value: "bread"}, sc.Steps[0])
}

func TestParser_JSON(t *testing.T) {
	sc, err := compiler.NewParser().Parse([]byte(`{"sequences": {"s": [1, 2]}, "steps": [{"op": "remove", "sequence": "s", "offset": 1}]}`))
	require.NoError(t, err)
	assert.Equal(t, []any{1, 2}, sc.Sequences["s"])
	assert.Equal(t, 1, sc.Steps[0].Offset)
}

func TestParser_Errors(t *testing.T) {
	p := compiler.NewParser()

	_, err := p.Parse([]byte(""))
	assert.Error(t, err)

	_, err = p.Parse([]byte("records: [unterminated"))
	assert.Error(t, err)

	_, err = p.Parse([]byte("stpes: []"))
	assert.ErrorContains(t, err, "stpes")
}
