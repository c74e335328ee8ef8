package parser

import (
	"fmt"
	"strings"

	"github.com/moamenhredeen/apihacker/internal/models"
	"github.com/pb33f/libopenapi"
	v3 "github.com/pb33f/libopenapi/datamodel/high/v3"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// pathItemFields are the keys of a path item that do not declare an operation
var pathItemFields = map[string]bool{
	"$ref":        true,
	"summary":     true,
	"description": true,
	"servers":     true,
	"parameters":  true,
}

// Parser handles parsing OpenAPI specification files
type Parser struct {
	root *yaml.Node

	// model is only built for documents declaring an openapi 3.x version
	model    *v3.Document
	warnings []string
}

// ParseFile reads and parses an OpenAPI document, JSON or YAML, from fs
func ParseFile(fs afero.Fs, filePath string) (*Parser, error) {
	specBytes, err := afero.ReadFile(fs, filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read OpenAPI file: %w", err)
	}
	return Parse(specBytes)
}

// Parse parses an OpenAPI document held in memory
func Parse(specBytes []byte) (*Parser, error) {
	doc := &yaml.Node{}
	modelBytes := specBytes
	if isJSON(specBytes) {
		var err error
		if doc, err = decodeJSON(specBytes); err != nil {
			return nil, fmt.Errorf("failed to parse OpenAPI document: %w", err)
		}
	} else if err := yaml.Unmarshal(specBytes, doc); err != nil {
		return nil, fmt.Errorf("failed to parse OpenAPI document: %w", err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, fmt.Errorf("failed to parse OpenAPI document: empty document")
	}

	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("failed to parse OpenAPI document: top level is not an object")
	}

	p := &Parser{root: root}
	if version := scalar(mappingValue(root, "openapi")); strings.HasPrefix(version, "3") {
		// libopenapi reads YAML, so JSON input is handed over re-encoded from the tree
		if isJSON(specBytes) {
			encoded, err := yaml.Marshal(doc)
			if err != nil {
				p.warnings = append(p.warnings, fmt.Sprintf("failed to re-encode document for the OpenAPI model: %v", err))
				return p, nil
			}
			modelBytes = encoded
		}
		p.buildModel(modelBytes)
	}
	return p, nil
}

// buildModel lets libopenapi resolve references. Failures only cost the resolution,
// the raw document is still usable.
func (p *Parser) buildModel(specBytes []byte) {
	document, err := libopenapi.NewDocument(specBytes)
	if err != nil {
		p.warnings = append(p.warnings, fmt.Sprintf("failed to load OpenAPI model, using raw document: %v", err))
		return
	}

	model, errs := document.BuildV3Model()
	if errs != nil || model == nil {
		p.warnings = append(p.warnings, fmt.Sprintf("failed to build v3 model, using raw document: %v", errs))
		return
	}
	p.model = &model.Model
}

// GetServerURLs returns the server URLs declared in the document, in order
func (p *Parser) GetServerURLs() []string {
	var urls []string

	if p.model != nil {
		for _, server := range p.model.Servers {
			if server != nil && server.URL != "" {
				urls = append(urls, server.URL)
			}
		}
		return urls
	}

	servers := mappingValue(p.root, "servers")
	if servers == nil || servers.Kind != yaml.SequenceNode {
		return urls
	}
	for _, server := range servers.Content {
		if u := scalar(mappingValue(server, "url")); u != "" {
			urls = append(urls, u)
		}
	}
	return urls
}

// Specification extracts every operation, keeping the stored order of paths and of
// the methods under each path
func (p *Parser) Specification() *models.Specification {
	spec := &models.Specification{
		ServerURLs: p.GetServerURLs(),
		Warnings:   append([]string(nil), p.warnings...),
	}

	paths := mappingValue(p.root, "paths")
	if paths == nil || paths.Kind != yaml.MappingNode {
		return spec
	}

	pathIndex := make(map[string]int)
	for i := 0; i+1 < len(paths.Content); i += 2 {
		path := paths.Content[i].Value
		itemNode := paths.Content[i+1]
		if itemNode.Kind != yaml.MappingNode {
			spec.Warnings = append(spec.Warnings, fmt.Sprintf("path %s is not an object, skipped", path))
			continue
		}

		item := models.PathItem{Path: path}
		methodIndex := make(map[string]int)
		for j := 0; j+1 < len(itemNode.Content); j += 2 {
			method := itemNode.Content[j].Value
			if pathItemFields[method] || strings.HasPrefix(method, "x-") {
				continue
			}

			op := models.Operation{
				Path:        path,
				Method:      method,
				OperationID: scalar(mappingValue(itemNode.Content[j+1], "operationId")),
			}
			op.Parameters = p.parameters(path, method, itemNode.Content[j+1], spec)

			// Duplicate keys: the later definition wins, in the earlier position
			if k, ok := methodIndex[method]; ok {
				spec.Warnings = append(spec.Warnings, fmt.Sprintf("duplicate method %s under path %s, keeping the last one", method, path))
				item.Operations[k] = op
				continue
			}
			methodIndex[method] = len(item.Operations)
			item.Operations = append(item.Operations, op)
		}

		if k, ok := pathIndex[path]; ok {
			spec.Warnings = append(spec.Warnings, fmt.Sprintf("duplicate path %s, keeping the last one", path))
			spec.Paths[k] = item
			continue
		}
		pathIndex[path] = len(spec.Paths)
		spec.Paths = append(spec.Paths, item)
	}

	return spec
}

// parameters returns the declared parameters of one operation. Resolved names from the
// libopenapi model are preferred, raw names are the fallback.
func (p *Parser) parameters(path, method string, opNode *yaml.Node, spec *models.Specification) []models.Parameter {
	if op := p.modelOperation(path, method); op != nil {
		var params []models.Parameter
		for _, param := range op.Parameters {
			if param != nil && param.Name != "" {
				params = append(params, models.Parameter{Name: param.Name, In: param.In})
			}
		}
		return params
	}

	list := mappingValue(opNode, "parameters")
	if list == nil || list.Kind != yaml.SequenceNode {
		return nil
	}

	var params []models.Parameter
	for _, paramNode := range list.Content {
		name := scalar(mappingValue(paramNode, "name"))
		if name == "" {
			if ref := scalar(mappingValue(paramNode, "$ref")); ref != "" {
				spec.Warnings = append(spec.Warnings,
					fmt.Sprintf("%s %s: unresolved parameter reference %s dropped", strings.ToUpper(method), path, ref))
			}
			continue
		}
		params = append(params, models.Parameter{
			Name: name,
			In:   scalar(mappingValue(paramNode, "in")),
		})
	}
	return params
}

// modelOperation looks an operation up in the libopenapi model
func (p *Parser) modelOperation(path, method string) *v3.Operation {
	if p.model == nil || p.model.Paths == nil || p.model.Paths.PathItems == nil {
		return nil
	}

	var pathItem *v3.PathItem
	for pair := p.model.Paths.PathItems.First(); pair != nil; pair = pair.Next() {
		if pair.Key() == path {
			pathItem = pair.Value()
			break
		}
	}
	if pathItem == nil {
		return nil
	}

	switch strings.ToLower(method) {
	case "get":
		return pathItem.Get
	case "post":
		return pathItem.Post
	case "put":
		return pathItem.Put
	case "patch":
		return pathItem.Patch
	case "delete":
		return pathItem.Delete
	case "head":
		return pathItem.Head
	case "options":
		return pathItem.Options
	case "trace":
		return pathItem.Trace
	default:
		return nil
	}
}

// mappingValue returns the value node stored under key, or nil. A repeated key
// resolves to its last occurrence.
func mappingValue(node *yaml.Node, key string) *yaml.Node {
	if node == nil || node.Kind != yaml.MappingNode {
		return nil
	}
	var value *yaml.Node
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == key {
			value = node.Content[i+1]
		}
	}
	return value
}

func scalar(node *yaml.Node) string {
	if node == nil || node.Kind != yaml.ScalarNode {
		return ""
	}
	return node.Value
}
