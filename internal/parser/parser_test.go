package parser

import (
	"reflect"
	"strings"
	"testing"

	"github.com/moamenhredeen/apihacker/internal/models"
	"github.com/spf13/afero"
)

func memFile(t *testing.T, name, content string) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	if err := afero.WriteFile(fs, name, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write %s: %v", name, err)
	}
	return fs
}

func parseString(t *testing.T, content string) *models.Specification {
	t.Helper()
	p, err := Parse([]byte(content))
	if err != nil {
		t.Fatalf("Failed to parse document: %v", err)
	}
	return p.Specification()
}

func operationNames(spec *models.Specification) []string {
	var names []string
	for _, op := range spec.Operations() {
		names = append(names, op.HTTPMethod()+" "+op.Path)
	}
	return names
}

func TestParseFile(t *testing.T) {
	p, err := ParseFile(afero.NewOsFs(), "testdata/pet-store.json")
	if err != nil {
		t.Fatalf("Failed to parse file: %v", err)
	}
	if p == nil {
		t.Fatal("Parser is nil")
	}
}

func TestParseFileNotFound(t *testing.T) {
	_, err := ParseFile(afero.NewMemMapFs(), "nonexistent.json")
	if err == nil {
		t.Error("Expected error for nonexistent file")
	}
}

func TestParseInvalidDocument(t *testing.T) {
	for _, content := range []string{"", "[1, 2, 3]", "{ not: [valid", `{"paths": {"/a": }}`, "key: [unclosed"} {
		if _, err := Parse([]byte(content)); err == nil {
			t.Errorf("Expected error for content %q", content)
		}
	}
}

func TestGetServerURLs(t *testing.T) {
	p, err := ParseFile(afero.NewOsFs(), "testdata/pet-store.json")
	if err != nil {
		t.Fatalf("Failed to parse file: %v", err)
	}

	want := []string{"http://petstore.swagger.io/v1"}
	if got := p.GetServerURLs(); !reflect.DeepEqual(got, want) {
		t.Errorf("GetServerURLs() = %v, want %v", got, want)
	}
}

func TestSpecificationOrder(t *testing.T) {
	p, err := ParseFile(afero.NewOsFs(), "testdata/pet-store.json")
	if err != nil {
		t.Fatalf("Failed to parse file: %v", err)
	}

	spec := p.Specification()
	if len(spec.Paths) != 2 {
		t.Fatalf("Expected 2 paths, got %d", len(spec.Paths))
	}
	if spec.TotalOperations() != 4 {
		t.Errorf("Expected 4 operations, got %d", spec.TotalOperations())
	}

	want := []string{
		"GET /pets",
		"POST /pets",
		"GET /pets/{petId}",
		"DELETE /pets/{petId}",
	}
	if got := operationNames(spec); !reflect.DeepEqual(got, want) {
		t.Errorf("Operations = %v, want %v", got, want)
	}
	if spec.DefaultServerURL() != "http://petstore.swagger.io/v1" {
		t.Errorf("Unexpected default server %q", spec.DefaultServerURL())
	}
}

func TestSpecificationResolvesParameterRefs(t *testing.T) {
	p, err := ParseFile(afero.NewOsFs(), "testdata/pet-store.json")
	if err != nil {
		t.Fatalf("Failed to parse file: %v", err)
	}

	spec := p.Specification()
	listPets := spec.Paths[0].Operations[0]
	if listPets.OperationID != "listPets" {
		t.Errorf("Expected operationId listPets, got %q", listPets.OperationID)
	}
	if want := []models.Parameter{{Name: "limit", In: "query"}}; !reflect.DeepEqual(listPets.Parameters, want) {
		t.Errorf("listPets parameters = %v, want %v", listPets.Parameters, want)
	}

	showPet := spec.Paths[1].Operations[0]
	if want := []models.Parameter{{Name: "petId", In: "path"}}; !reflect.DeepEqual(showPet.Parameters, want) {
		t.Errorf("showPetById parameters = %v, want %v", showPet.Parameters, want)
	}
}

func TestSpecificationWithoutVersion(t *testing.T) {
	fs := memFile(t, "api.json", `{
  "servers": [{"url": "http://api.test"}],
  "paths": {
    "/users/{userId}": {"get": {"parameters": []}},
    "/users": {
      "post": {"parameters": [{"name": "age"}, {"name": "height", "in": "query"}]},
      "head": {}
    }
  }
}`)

	p, err := ParseFile(fs, "api.json")
	if err != nil {
		t.Fatalf("Failed to parse file: %v", err)
	}

	spec := p.Specification()
	if spec.DefaultServerURL() != "http://api.test" {
		t.Errorf("Unexpected default server %q", spec.DefaultServerURL())
	}
	if spec.TotalOperations() != 3 {
		t.Fatalf("Expected 3 operations, got %d", spec.TotalOperations())
	}

	ops := spec.Operations()
	if ops[0].Method != "get" || len(ops[0].Parameters) != 0 {
		t.Errorf("Unexpected first operation %+v", ops[0])
	}
	if want := []models.Parameter{{Name: "age"}, {Name: "height", In: "query"}}; !reflect.DeepEqual(ops[1].Parameters, want) {
		t.Errorf("post parameters = %v, want %v", ops[1].Parameters, want)
	}
	if ops[2].Method != "head" {
		t.Errorf("Expected head to be kept, got %q", ops[2].Method)
	}
}

func TestSpecificationEscapedSlashes(t *testing.T) {
	spec := parseString(t, `{"servers":[{"url":"http:\/\/api.test"}],"paths":{"\/a":{"get":{"parameters":[{"name":"q1"}]}},"\/b\/{bId}":{"post":{}}}}`)

	if spec.DefaultServerURL() != "http://api.test" {
		t.Errorf("Unexpected default server %q", spec.DefaultServerURL())
	}
	want := []string{"GET /a", "POST /b/{bId}"}
	if got := operationNames(spec); !reflect.DeepEqual(got, want) {
		t.Errorf("Operations = %v, want %v", got, want)
	}
	if got := spec.Operations()[0].Parameters; len(got) != 1 || got[0].Name != "q1" {
		t.Errorf("Unexpected parameters %v", got)
	}
}

func TestSpecificationEscapedSlashesWithVersion(t *testing.T) {
	spec := parseString(t, `{
  "openapi": "3.0.0",
  "info": {"title": "escaped", "version": "1.0.0"},
  "servers": [{"url": "http:\/\/api.test\/v1"}],
  "paths": {"\/items\/{itemId}": {"get": {"parameters": [{"name": "itemId", "in": "path", "required": true, "schema": {"type": "integer"}}]}}}
}`)

	if spec.DefaultServerURL() != "http://api.test/v1" {
		t.Errorf("Unexpected default server %q", spec.DefaultServerURL())
	}
	want := []string{"GET /items/{itemId}"}
	if got := operationNames(spec); !reflect.DeepEqual(got, want) {
		t.Errorf("Operations = %v, want %v", got, want)
	}
	if got := spec.Operations()[0].Parameters; len(got) != 1 || got[0].Name != "itemId" {
		t.Errorf("Unexpected parameters %v", got)
	}
}

func TestSpecificationDuplicateKeysKeepLast(t *testing.T) {
	spec := parseString(t, `{
  "paths": {
    "/a": {"get": {}},
    "/b": {"put": {}, "put": {"parameters": [{"name": "id"}]}},
    "/a": {"post": {}}
  }
}`)

	want := []string{"POST /a", "PUT /b"}
	if got := operationNames(spec); !reflect.DeepEqual(got, want) {
		t.Errorf("Operations = %v, want %v", got, want)
	}
	if spec.TotalOperations() != 2 {
		t.Errorf("Expected 2 operations, got %d", spec.TotalOperations())
	}
	if got := spec.Operations()[1].Parameters; len(got) != 1 || got[0].Name != "id" {
		t.Errorf("Expected the last put to win, got parameters %v", got)
	}

	var duplicates int
	for _, w := range spec.Warnings {
		if strings.Contains(w, "duplicate") {
			duplicates++
		}
	}
	if duplicates != 2 {
		t.Errorf("Expected 2 duplicate warnings, got %v", spec.Warnings)
	}
}

func TestSpecificationSkipsPathItemFields(t *testing.T) {
	fs := memFile(t, "api.yaml", `
paths:
  /things:
    summary: things
    parameters:
      - name: shared
    x-internal: true
    put:
      operationId: replaceThing
    patch: {}
`)

	p, err := ParseFile(fs, "api.yaml")
	if err != nil {
		t.Fatalf("Failed to parse file: %v", err)
	}

	spec := p.Specification()
	if len(spec.Paths) != 1 {
		t.Fatalf("Expected 1 path, got %d", len(spec.Paths))
	}
	ops := spec.Paths[0].Operations
	if len(ops) != 2 {
		t.Fatalf("Expected 2 operations, got %d", len(ops))
	}
	if ops[0].Method != "put" || ops[0].OperationID != "replaceThing" {
		t.Errorf("Unexpected first operation %+v", ops[0])
	}
	if ops[1].Method != "patch" {
		t.Errorf("Expected patch, got %q", ops[1].Method)
	}
	if len(spec.ServerURLs) != 0 {
		t.Errorf("Expected no servers, got %v", spec.ServerURLs)
	}
}

func TestSpecificationUnresolvedRefWithoutModel(t *testing.T) {
	fs := memFile(t, "api.json", `{
  "paths": {
    "/items": {"get": {"parameters": [{"$ref": "#/components/parameters/Page"}, {"name": "q"}]}}
  }
}`)

	p, err := ParseFile(fs, "api.json")
	if err != nil {
		t.Fatalf("Failed to parse file: %v", err)
	}

	spec := p.Specification()
	if want := []models.Parameter{{Name: "q"}}; !reflect.DeepEqual(spec.Operations()[0].Parameters, want) {
		t.Errorf("Parameters = %v, want %v", spec.Operations()[0].Parameters, want)
	}
	if len(spec.Warnings) != 1 || !strings.Contains(spec.Warnings[0], "#/components/parameters/Page") {
		t.Errorf("Expected one warning naming the reference, got %v", spec.Warnings)
	}
}

func TestSpecificationNoPaths(t *testing.T) {
	spec := parseString(t, `{"servers": [{"url": "http://api.test"}]}`)

	if spec.TotalOperations() != 0 {
		t.Errorf("Expected no operations, got %d", spec.TotalOperations())
	}
	if len(spec.Operations()) != 0 {
		t.Errorf("Expected empty operation list, got %v", spec.Operations())
	}
}
