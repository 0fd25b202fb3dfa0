// Package dto holds the decoded shape of scenario files.
package dto

// Scenario describes observables, derivations, a bound tree and a list of steps to
// replay against an engine. It uses "mapstructure" tags so YAML and JSON files
// decode the same way.
type Scenario struct {
	Name      string                    `json:"name" mapstructure:"name"`
	Shard     string                    `json:"shard" mapstructure:"shard"`
	Records   map[string]map[string]any `json:"records" mapstructure:"records"`
	Sequences map[string][]any          `json:"sequences" mapstructure:"sequences"`
	Derived   []Derivation              `json:"derived" mapstructure:"derived"`
	Tree      *Tree                     `json:"tree" mapstructure:"tree"`
	Steps     []Step                    `json:"steps" mapstructure:"steps"`
}

// Derivation mirrors an expression over a record into one of its keys.
type Derivation struct {
	Record string `json:"record" mapstructure:"record"`
	Key    string `json:"key" mapstructure:"key"`
	Expr   string `json:"expr" mapstructure:"expr"`
}

// Tree is a live node whose attributes come from a record and whose children are the
// concatenation of one or more sequences.
type Tree struct {
	Tag      string   `json:"tag" mapstructure:"tag"`
	Attrs    string   `json:"attrs" mapstructure:"attrs"`
	Children []string `json:"children" mapstructure:"children"`
}

// Step operation names.
const (
	OpWrite  = "write"
	OpSet    = "set"
	OpInsert = "insert"
	OpAppend = "append"
	OpRemove = "remove"
)

// Step is one write. Write targets Record and Key; the others target Sequence and Offset.
type Step struct {
	Op       string `json:"op" mapstructure:"op"`
	Record   string `json:"record" mapstructure:"record"`
	Key      string `json:"key" mapstructure:"key"`
	Sequence string `json:"sequence" mapstructure:"sequence"`
	Offset   int    `json:"offset" mapstructure:"offset"`
	Value    any    `json:"value" mapstructure:"value"`
}
