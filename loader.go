package soep

import (
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/goccy/go-yaml/ast"
	"github.com/goccy/go-yaml/parser"
)

type loader struct {
	fileProvider FileProvider
	metadata     Metadata
	files        map[string]string // variable name to file name
}

// LoadMetadata reads all metadata files of the provider. A record without module gets the file name without
// extension as its module. Variables defined more than once are an error.
func LoadMetadata(fileProvider FileProvider) (Metadata, error) {
	l := &loader{
		fileProvider: fileProvider,
		metadata:     Metadata{},
		files:        map[string]string{},
	}
	err := l.load()
	if err != nil {
		return nil, err
	}
	return l.metadata, nil
}

func (l *loader) load() error {
	return l.fileProvider.Load(func(info FileInfo) error {
		return l.loadFile(info.Name, info.File)
	})
}

func (l *loader) loadFile(name string, file io.Reader) error {
	data, err := io.ReadAll(file)
	if err != nil {
		return err
	}

	fileParser, err := parser.ParseBytes(data, 0)
	if err != nil {
		return err
	}

	defaultModule := strings.TrimSuffix(path.Base(name), MetadataFileSuffix)

	for _, doc := range fileParser.Docs {
		if doc.Body == nil {
			continue
		}
		err := l.loadDoc(name, defaultModule, doc.Body)
		if err != nil {
			return err
		}
	}

	return nil
}

func (l *loader) loadDoc(fileName, defaultModule string, node ast.Node) error {
	switch n := node.(type) {
	case *ast.MappingValueNode:
		return l.loadVariable(fileName, defaultModule, n)
	case *ast.MappingNode:
		for _, value := range n.Values {
			err := l.loadVariable(fileName, defaultModule, value)
			if err != nil {
				return err
			}
		}
	default:
		return NewParseError(fmt.Sprintf("invalid file node '%s'", n.Type().String()), n.GetPath(),
			n.GetToken().Position)
	}
	return nil
}

func (l *loader) loadVariable(fileName, defaultModule string, node *ast.MappingValueNode) error {
	name, err := getStringNode(node.Key)
	if err != nil {
		return err
	}
	if IsKeyColumn(name) {
		return NewParseError(fmt.Sprintf("'%s' is a reserved key column", name), node.GetPath(),
			node.GetToken().Position)
	}
	if other, ok := l.files[name]; ok {
		return NewParseError(fmt.Sprintf("%s: variable '%s' already defined in '%s'", ErrDuplicateVariable, name, other),
			node.GetPath(), node.GetToken().Position)
	}

	record := VariableMetadata{Module: defaultModule}

	var values []*ast.MappingValueNode
	switch n := node.Value.(type) {
	case *ast.MappingNode:
		values = n.Values
	case *ast.MappingValueNode:
		values = []*ast.MappingValueNode{n}
	default:
		return NewParseError(fmt.Sprintf("invalid variable node for '%s'", name), node.Value.GetPath(),
			node.Value.GetToken().Position)
	}

	for _, value := range values {
		key, err := getStringNode(value.Key)
		if err != nil {
			return err
		}
		switch key {
		case "module":
			record.Module, err = getStringNode(value.Value)
		case "dtype":
			record.DType, err = loadDType(value.Value)
		case "survey_years":
			record.SurveyYears, err = loadSurveyYears(value.Value)
		default:
			err = NewParseError(fmt.Sprintf("invalid variable field '%s' for '%s'", key, name), value.GetPath(),
				value.GetToken().Position)
		}
		if err != nil {
			return err
		}
	}

	if _, err := record.Variable(name); err != nil {
		return NewParseError(err.Error(), node.GetPath(), node.GetToken().Position)
	}

	l.metadata[name] = record
	l.files[name] = fileName
	return nil
}

type categoryDType struct {
	Categories      []any  `yaml:"categories"`
	CategoriesDType string `yaml:"categories_dtype"`
	Ordered         bool   `yaml:"ordered"`
}

func loadDType(node ast.Node) (DType, error) {
	switch n := node.(type) {
	case *ast.StringNode:
		return DType{Name: n.Value}, nil
	case *ast.MappingNode, *ast.MappingValueNode:
		var cd categoryDType
		err := yaml.NodeToValue(node, &cd)
		if err != nil {
			return DType{}, NewParseError(fmt.Sprintf("error reading categories: %s", err), node.GetPath(),
				node.GetToken().Position)
		}
		if cd.CategoriesDType == "" {
			return DType{}, NewParseError("categories_dtype is required", node.GetPath(), node.GetToken().Position)
		}
		if cd.Categories == nil {
			cd.Categories = []any{}
		}
		return DType{
			Name:            "category",
			Categories:      cd.Categories,
			CategoriesDType: cd.CategoriesDType,
			Ordered:         cd.Ordered,
		}, nil
	default:
		return DType{}, NewParseError(fmt.Sprintf("invalid dtype node '%s'", node.Type().String()), node.GetPath(),
			node.GetToken().Position)
	}
}

func loadSurveyYears(node ast.Node) ([]int, error) {
	switch n := node.(type) {
	case *ast.NullNode:
		return nil, nil
	case *ast.SequenceNode:
		ret := []int{}
		for _, item := range n.Values {
			var year int
			err := yaml.NodeToValue(item, &year)
			if err != nil {
				return nil, NewParseError(fmt.Sprintf("invalid survey year: %s", err), item.GetPath(),
					item.GetToken().Position)
			}
			ret = append(ret, year)
		}
		return ret, nil
	default:
		return nil, NewParseError(fmt.Sprintf("invalid survey_years node '%s'", node.Type().String()),
			node.GetPath(), node.GetToken().Position)
	}
}

// getStringNode gets the string value of a string node, or an error if not a string node.
func getStringNode(node ast.Node) (string, error) {
	switch n := node.(type) {
	case *ast.StringNode:
		return n.Value, nil
	default:
		return "", NewParseError("node is not string", node.GetPath(), node.GetToken().Position)
	}
}
