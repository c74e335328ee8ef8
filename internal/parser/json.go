package parser

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	jsoniter "github.com/json-iterator/go"
	"gopkg.in/yaml.v3"
)

// isJSON reports whether the document looks like JSON rather than YAML
func isJSON(specBytes []byte) bool {
	trimmed := bytes.TrimLeft(specBytes, " \t\r\n")
	return len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[')
}

// decodeJSON builds the same ordered node tree yaml.v3 would produce, from a JSON token
// stream. YAML is not a strict superset of JSON: escapes such as `\/` are valid JSON
// but rejected by the YAML scanner.
func decodeJSON(specBytes []byte) (*yaml.Node, error) {
	iter := jsoniter.ParseBytes(jsoniter.ConfigCompatibleWithStandardLibrary, specBytes)
	root := readJSONValue(iter)
	if iter.Error != nil && !errors.Is(iter.Error, io.EOF) {
		return nil, fmt.Errorf("invalid JSON: %w", iter.Error)
	}
	if root == nil {
		return nil, fmt.Errorf("invalid JSON: no value")
	}
	return &yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{root}}, nil
}

func readJSONValue(iter *jsoniter.Iterator) *yaml.Node {
	switch iter.WhatIsNext() {
	case jsoniter.ObjectValue:
		node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		iter.ReadObjectCB(func(iter *jsoniter.Iterator, field string) bool {
			value := readJSONValue(iter)
			if value == nil {
				return false
			}
			node.Content = append(node.Content, strNode(field), value)
			return true
		})
		return node

	case jsoniter.ArrayValue:
		node := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		iter.ReadArrayCB(func(iter *jsoniter.Iterator) bool {
			value := readJSONValue(iter)
			if value == nil {
				return false
			}
			node.Content = append(node.Content, value)
			return true
		})
		return node

	case jsoniter.StringValue:
		return strNode(iter.ReadString())

	case jsoniter.NumberValue:
		number := iter.ReadNumber().String()
		tag := "!!int"
		if bytes.ContainsAny([]byte(number), ".eE") {
			tag = "!!float"
		}
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: number}

	case jsoniter.BoolValue:
		if iter.ReadBool() {
			return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: "true"}
		}
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: "false"}

	case jsoniter.NilValue:
		iter.ReadNil()
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}

	default:
		if iter.Error == nil {
			iter.ReportError("readJSONValue", "unexpected token")
		}
		return nil
	}
}

func strNode(value string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: value}
}
