package jksn

import (
	"encoding/base64"
	"fmt"
	"math"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ============================================================
// YAML Bridge
// ============================================================
//
// Works on yaml.Node trees so mapping order is kept. Blobs use the
// !!binary tag; .nan and .inf map to the float specials.

// FromYAML parses a single YAML document into a Value.
func FromYAML(data []byte) (*Value, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("YAML parse error: %w", err)
	}
	if doc.Kind == 0 {
		return Null(), nil
	}
	return FromYAMLNode(&doc)
}

// FromYAMLNode converts a decoded YAML node into a Value.
func FromYAMLNode(n *yaml.Node) (*Value, error) {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return Null(), nil
		}
		return FromYAMLNode(n.Content[0])
	case yaml.AliasNode:
		return FromYAMLNode(n.Alias)
	case yaml.SequenceNode:
		list := List()
		for i, c := range n.Content {
			v, err := FromYAMLNode(c)
			if err != nil {
				return nil, fmt.Errorf("array[%d]: %w", i, err)
			}
			list.Append(v)
		}
		return list, nil
	case yaml.MappingNode:
		rec := Record()
		for i := 0; i+1 < len(n.Content); i += 2 {
			key := n.Content[i].Value
			v, err := FromYAMLNode(n.Content[i+1])
			if err != nil {
				return nil, fmt.Errorf("object[%q]: %w", key, err)
			}
			rec.Set(key, v)
		}
		return rec, nil
	case yaml.ScalarNode:
		return fromYAMLScalar(n)
	}
	return nil, fmt.Errorf("line %d: unsupported YAML node kind %d", n.Line, n.Kind)
}

func fromYAMLScalar(n *yaml.Node) (*Value, error) {
	switch n.ShortTag() {
	case "!!null":
		return Null(), nil
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err != nil {
			return nil, err
		}
		return Bool(b), nil
	case "!!int":
		var i int64
		if err := n.Decode(&i); err == nil {
			return Int(i), nil
		}
		var f float64
		if err := n.Decode(&f); err != nil {
			return nil, err
		}
		return Float(f), nil
	case "!!float":
		var f float64
		if err := n.Decode(&f); err != nil {
			return nil, err
		}
		return Float(f), nil
	case "!!binary":
		b, err := base64.StdEncoding.DecodeString(strings.Join(strings.Fields(n.Value), ""))
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid !!binary: %w", n.Line, err)
		}
		return Blob(b), nil
	default:
		return Text(n.Value), nil
	}
}

// ToYAML renders v as a YAML document.
func ToYAML(v *Value) ([]byte, error) {
	return yaml.Marshal(ToYAMLNode(v))
}

// ToYAMLNode converts v into a YAML node tree. Absent and unspecified
// values become null in sequences and are left out of mappings.
func ToYAMLNode(v *Value) *yaml.Node {
	scalar := func(tag, value string) *yaml.Node {
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: value}
	}
	switch v.Kind() {
	case KindBool:
		return scalar("!!bool", strconv.FormatBool(v.boolVal))
	case KindInt:
		return scalar("!!int", strconv.FormatInt(v.intVal, 10))
	case KindFloat:
		switch {
		case math.IsNaN(v.floatVal):
			return scalar("!!float", ".nan")
		case math.IsInf(v.floatVal, 1):
			return scalar("!!float", ".inf")
		case math.IsInf(v.floatVal, -1):
			return scalar("!!float", "-.inf")
		}
		s := strconv.FormatFloat(v.floatVal, 'g', -1, 64)
		if _, err := strconv.ParseInt(s, 10, 64); err == nil {
			s += ".0"
		}
		return scalar("!!float", s)
	case KindText:
		return scalar("!!str", v.textVal)
	case KindBlob:
		return scalar("!!binary", base64.StdEncoding.EncodeToString(v.blobVal))
	case KindList:
		n := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, elem := range v.listVal {
			n.Content = append(n.Content, ToYAMLNode(elem))
		}
		return n
	case KindRecord:
		n := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for _, f := range v.fields {
			if f.Value.IsAbsent() || f.Value.IsUnspecified() {
				continue
			}
			n.Content = append(n.Content, scalar("!!str", f.Key), ToYAMLNode(f.Value))
		}
		return n
	default:
		return scalar("!!null", "null")
	}
}
