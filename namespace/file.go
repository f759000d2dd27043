package namespace

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// FileListing is the document read by [File]:
//
//	names:
//	  - name: PI
//	    kind: value
//	  - name: InvalidRequestException
//	    kind: type
//	    exception: true
type FileListing struct {
	Names []FileEntry `yaml:"names"`
}

type FileEntry struct {
	Name      string `yaml:"name"`
	Kind      *Kind  `yaml:"kind"`
	Exception bool   `yaml:"exception,omitempty"`
}

// File loads a pre-tagged namespace listing from a YAML file.
type File struct {
	Path string
}

func (f File) Load(ctx context.Context) ([]Name, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, fmt.Errorf("load namespace: %w", err)
	}
	names, err := ParseListing(data)
	if err != nil {
		return nil, fmt.Errorf("load namespace: %v: %w", f.Path, err)
	}
	return names, nil
}

// ParseListing decodes a YAML namespace listing.
func ParseListing(data []byte) ([]Name, error) {
	var lst FileListing
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&lst); err != nil {
		return nil, err
	}
	names := make([]Name, 0, len(lst.Names))
	for i, e := range lst.Names {
		if e.Kind == nil {
			return nil, fmt.Errorf("name %v (%v) has no kind", i+1, e.Name)
		}
		names = append(names, Name{
			Name: e.Name,
			Entity: Entity{
				Kind:             *e.Kind,
				ExceptionSubtype: e.Exception,
			},
		})
	}
	if err := checkNames(names); err != nil {
		return nil, err
	}
	return names, nil
}

// WriteListing encodes names in the format read by [File].
func WriteListing(names []Name) ([]byte, error) {
	lst := FileListing{Names: make([]FileEntry, 0, len(names))}
	for _, n := range names {
		kind := n.Entity.Kind
		lst.Names = append(lst.Names, FileEntry{
			Name:      n.Name,
			Kind:      &kind,
			Exception: n.Entity.ExceptionSubtype,
		})
	}
	var b bytes.Buffer
	enc := yaml.NewEncoder(&b)
	enc.SetIndent(2)
	if err := enc.Encode(&lst); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}
