package canon

import (
	"bytes"
	"sort"

	"gopkg.in/yaml.v3"
)

// canonicalizeYAML parses content, recursively sorts mapping keys,
// collapses flow/block indent to a fixed form, and re-emits with "\n"
// line endings.
func canonicalizeYAML(content []byte) ([]byte, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(content, &doc); err != nil {
		return nil, &Error{Type: YAML, Reason: err.Error()}
	}
	if len(doc.Content) == 0 {
		// Empty document: canonical form is an empty byte sequence.
		return []byte{}, nil
	}
	sortNode(doc.Content[0])

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		return nil, &Error{Type: YAML, Reason: err.Error()}
	}
	enc.Close()

	out := buf.Bytes()
	out = normalizeNewlines(out)
	if len(out) == 0 || out[len(out)-1] != '\n' {
		out = append(out, '\n')
	}
	return out, nil
}

// sortNode recursively sorts mapping keys (lexical byte order on the
// key's raw scalar value) throughout the tree, and forces every
// collection node to block style so indentation is always the same
// fixed form regardless of how the source was written.
func sortNode(n *yaml.Node) {
	switch n.Kind {
	case yaml.MappingNode:
		n.Style = 0 // block style
		type pair struct {
			key *yaml.Node
			val *yaml.Node
		}
		pairs := make([]pair, 0, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			pairs = append(pairs, pair{n.Content[i], n.Content[i+1]})
		}
		sort.SliceStable(pairs, func(i, j int) bool {
			return pairs[i].key.Value < pairs[j].key.Value
		})
		content := make([]*yaml.Node, 0, len(n.Content))
		for _, p := range pairs {
			sortNode(p.val)
			content = append(content, p.key, p.val)
		}
		n.Content = content
	case yaml.SequenceNode:
		n.Style = 0
		for _, c := range n.Content {
			sortNode(c)
		}
	case yaml.ScalarNode:
		// Leave scalar style (quoted/plain) as yaml.v3's own emission
		// default; only the structural ordering needs to be canonical.
	case yaml.DocumentNode, yaml.AliasNode:
		for _, c := range n.Content {
			sortNode(c)
		}
	}
}
