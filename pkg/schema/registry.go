// Package schema loads the canonical JSON Schema documents and answers two
// questions about them: does an extra document validate, and which property
// names are declared at a given nested path.
package schema

import (
	"bytes"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-faster/errors"
	"github.com/santhosh-tekuri/jsonschema/v6"
)

//go:embed schemas/*.schema.json
var embedded embed.FS

// Names of the schema documents shipped with the migrator.
const (
	Organization = "organization"
	Employee     = "employee"
)

// ValidationError reports an extra document that does not conform to its
// schema. Paths point at the violating locations inside the document.
type ValidationError struct {
	Schema string
	Paths  []string
	cause  error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("document does not conform to %q schema at %s",
		e.Schema, strings.Join(e.Paths, ", "))
}

func (e *ValidationError) Unwrap() error { return e.cause }

// Registry holds the compiled schemas plus their raw documents. The raw form
// is kept because field projection walks declared properties, which the
// compiled representation does not expose positionally.
type Registry struct {
	compiled map[string]*jsonschema.Schema
	raw      map[string]map[string]any
}

// NewRegistry loads the organization and employee schemas, from dir when it
// is non-empty and from the embedded copies otherwise. The employee schema's
// required clause is dropped: legacy data is too patchy to satisfy it.
func NewRegistry(dir string) (*Registry, error) {
	r := &Registry{
		compiled: make(map[string]*jsonschema.Schema),
		raw:      make(map[string]map[string]any),
	}
	compiler := jsonschema.NewCompiler()

	for _, name := range []string{Organization, Employee} {
		b, err := readSchema(dir, name)
		if err != nil {
			return nil, err
		}
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(b))
		if err != nil {
			return nil, errors.Wrapf(err, "parse %s schema", name)
		}
		m, ok := doc.(map[string]any)
		if !ok {
			return nil, errors.Errorf("%s schema: expected an object", name)
		}
		if name == Employee {
			delete(m, "required")
		}

		url := name + ".schema.json"
		if err := compiler.AddResource(url, m); err != nil {
			return nil, errors.Wrapf(err, "add %s schema", name)
		}
		sch, err := compiler.Compile(url)
		if err != nil {
			return nil, errors.Wrapf(err, "compile %s schema", name)
		}
		r.compiled[name] = sch
		r.raw[name] = m
	}

	return r, nil
}

func readSchema(dir, name string) ([]byte, error) {
	file := name + ".schema.json"
	if dir != "" {
		b, err := os.ReadFile(filepath.Join(dir, file))
		if err != nil {
			return nil, errors.Wrapf(err, "read %s schema", name)
		}
		return b, nil
	}
	b, err := embedded.ReadFile("schemas/" + file)
	if err != nil {
		return nil, errors.Wrapf(err, "read embedded %s schema", name)
	}
	return b, nil
}

// Validate checks doc against the named schema and returns a
// *ValidationError listing the violating paths on failure.
func (r *Registry) Validate(doc map[string]any, name string) error {
	sch, ok := r.compiled[name]
	if !ok {
		return errors.Errorf("unknown schema %q", name)
	}
	err := sch.Validate(doc)
	if err == nil {
		return nil
	}
	verr, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return err
	}
	return &ValidationError{Schema: name, Paths: leafPaths(verr), cause: err}
}

func leafPaths(verr *jsonschema.ValidationError) []string {
	if len(verr.Causes) == 0 {
		return []string{"/" + strings.Join(verr.InstanceLocation, "/")}
	}
	var paths []string
	for _, cause := range verr.Causes {
		paths = append(paths, leafPaths(cause)...)
	}
	return paths
}

// ProjectableFields returns the set of property names declared at the given
// nested path of the named schema. The path names properties, so
// ProjectableFields(Employee, "legacy", "employment") reads
// properties.legacy.properties.employment.properties.
func (r *Registry) ProjectableFields(name string, path ...string) (map[string]struct{}, error) {
	doc, ok := r.raw[name]
	if !ok {
		return nil, errors.Errorf("unknown schema %q", name)
	}

	node := doc
	for _, p := range path {
		props, ok := node["properties"].(map[string]any)
		if !ok {
			return nil, errors.Errorf("schema %q: no properties at %q", name, p)
		}
		child, ok := props[p].(map[string]any)
		if !ok {
			return nil, errors.Errorf("schema %q: property %q not declared", name, p)
		}
		node = child
	}

	props, ok := node["properties"].(map[string]any)
	if !ok {
		return nil, errors.Errorf("schema %q: path %v declares no properties", name, path)
	}
	fields := make(map[string]struct{}, len(props))
	for k := range props {
		fields[k] = struct{}{}
	}
	return fields, nil
}
