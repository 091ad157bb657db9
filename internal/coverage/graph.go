package coverage

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Action is one step of a parser stage.
type Action struct {
	// Set lists the fields the action populates, in declaration order.
	Set []string
	// Filter is the guard expression; HasFilter is false for unconditional actions.
	Filter    string
	HasFilter bool
}

// Stage is an ordered list of actions.
type Stage struct {
	Name    string
	Actions []Action
}

// ParserGraph is the declared stage/action structure of a parser.
type ParserGraph struct {
	Stages []Stage
}

// Stage returns the stage with the given name.
func (g *ParserGraph) Stage(name string) (*Stage, bool) {
	if g == nil {
		return nil, false
	}
	for i := range g.Stages {
		if g.Stages[i].Name == name {
			return &g.Stages[i], true
		}
	}
	return nil, false
}

// LoadParserGraph reads a parser definition. A missing file yields an error
// wrapping os.ErrNotExist.
func LoadParserGraph(path string) (*ParserGraph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseParserGraph(data)
}

// ParseParserGraph decodes a parser definition document.
func ParseParserGraph(data []byte) (*ParserGraph, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode parser definition: %w", err)
	}

	graph := &ParserGraph{}
	root := documentRoot(&doc)
	if root == nil {
		return graph, nil
	}

	stages := mappingValue(root, "stages")
	if stages == nil || stages.Kind != yaml.MappingNode {
		return graph, nil
	}

	for i := 0; i+1 < len(stages.Content); i += 2 {
		stage := Stage{Name: stages.Content[i].Value}
		if actions := mappingValue(stages.Content[i+1], "actions"); actions != nil && actions.Kind == yaml.SequenceNode {
			for _, node := range actions.Content {
				stage.Actions = append(stage.Actions, decodeAction(node))
			}
		}
		graph.Stages = append(graph.Stages, stage)
	}
	return graph, nil
}

func decodeAction(node *yaml.Node) Action {
	var action Action
	if node.Kind != yaml.MappingNode {
		return action
	}
	if set := mappingValue(node, "set"); set != nil && set.Kind == yaml.MappingNode {
		for i := 0; i+1 < len(set.Content); i += 2 {
			action.Set = append(action.Set, set.Content[i].Value)
		}
	}
	if filter := mappingValue(node, "filter"); filter != nil {
		action.HasFilter = true
		action.Filter = nodeText(filter)
	}
	return action
}

// nodeText returns the textual form of a filter expression. Non-scalar
// filters are re-encoded as YAML.
func nodeText(node *yaml.Node) string {
	if node.Kind == yaml.ScalarNode {
		return node.Value
	}
	out, err := yaml.Marshal(node)
	if err != nil {
		return ""
	}
	return string(out)
}

func documentRoot(doc *yaml.Node) *yaml.Node {
	if doc.Kind == yaml.DocumentNode && len(doc.Content) > 0 {
		return doc.Content[0]
	}
	if doc.Kind == yaml.MappingNode {
		return doc
	}
	return nil
}

func mappingValue(node *yaml.Node, key string) *yaml.Node {
	if node == nil || node.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == key {
			return node.Content[i+1]
		}
	}
	return nil
}

// ActionRef is a decoded action identifier "<parser>:<stage>:<index>".
type ActionRef struct {
	Parser string
	Stage  string
	Index  int
}

// ParseActionID decodes an action identifier. Identifiers with fewer than
// three parts or a non-numeric index are rejected.
func ParseActionID(id string) (ActionRef, bool) {
	parts := strings.Split(id, ":")
	if len(parts) < 3 {
		return ActionRef{}, false
	}
	index, err := strconv.Atoi(parts[2])
	if err != nil || index < 0 {
		return ActionRef{}, false
	}
	return ActionRef{Parser: parts[0], Stage: parts[1], Index: index}, true
}
