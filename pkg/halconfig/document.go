// Package halconfig reads and writes the halconfig file and knows the layout
// of the directory that holds it.
package halconfig

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"

	halyard "github.com/armory/halyard/pkg"
)

// DefaultLocalFileKeys are the halconfig fields whose values point at files on local disk.
var DefaultLocalFileKeys = []string{
	"kubeconfigFile",
	"jsonPath",
	"passwordFile",
	"usernamePasswordFile",
	"tokenFile",
	"sshPrivateKeyFilePath",
	"sshKnownHostsFilePath",
	"keyStore",
	"trustStore",
	"metadataLocal",
	"serviceAccountJsonPath",
	"privateKeyPath",
	"certificatePath",
}

// Document is a parsed halconfig. Only the local file references are
// interpreted, the rest of the tree round-trips untouched.
type Document struct {
	root yaml.Node
	keys map[string]bool
}

func Parse(data []byte, localFileKeys []string) (*Document, error) {
	d := &Document{keys: map[string]bool{}}
	for _, k := range localFileKeys {
		d.keys[k] = true
	}
	if err := yaml.Unmarshal(data, &d.root); err != nil {
		return nil, fmt.Errorf("failed to parse halconfig: %w", err)
	}
	return d, nil
}

// LocalFiles returns every non-empty local file reference, in document order.
func (d *Document) LocalFiles() []halyard.LocalFileRef {
	var refs []halyard.LocalFileRef
	var visit func(n *yaml.Node)
	visit = func(n *yaml.Node) {
		switch n.Kind {
		case yaml.DocumentNode, yaml.SequenceNode:
			for _, c := range n.Content {
				visit(c)
			}
		case yaml.MappingNode:
			for i := 0; i+1 < len(n.Content); i += 2 {
				key, value := n.Content[i], n.Content[i+1]
				if d.keys[key.Value] && value.Kind == yaml.ScalarNode && value.Tag == "!!str" && value.Value != "" {
					refs = append(refs, localFile{value})
					continue
				}
				visit(value)
			}
		}
	}
	visit(&d.root)
	return refs
}

func (d *Document) Marshal() ([]byte, error) {
	if d.root.Kind == 0 {
		return []byte{}, nil
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&d.root); err != nil {
		return nil, fmt.Errorf("failed to encode halconfig: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to encode halconfig: %w", err)
	}
	return buf.Bytes(), nil
}

type localFile struct {
	node *yaml.Node
}

func (f localFile) Path() string {
	return f.node.Value
}

func (f localFile) SetPath(path string) {
	f.node.Value = path
}
