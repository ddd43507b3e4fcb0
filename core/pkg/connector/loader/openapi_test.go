package loader

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/madcok-co/conduit/core/pkg/connector/schema"
)

const petsDocument = `
servers:
  - url: https://api.example.com/v1
paths:
  /pets:
    get:
      operationId: listPets
      parameters:
        - name: kind
          in: query
          required: true
          schema:
            type: string
      responses:
        "200":
          content:
            application/json:
              schema:
                type: array
                items:
                  $ref: "#/components/schemas/Pet"
      x-pagination:
        resultsPath: $response.body#/items
        pageOffset:
          pageOffsetParam: page
          startPage: 1
          limitParam: size
          maxLimit: 25
    post:
      operationId: createPet
      requestBody:
        content:
          application/json:
            schema:
              $ref: "#/components/schemas/Pet"
components:
  schemas:
    Pet:
      type: object
      required: [name]
      properties:
        name:
          type: string
        age:
          type: integer
`

const cyclicDocument = `
servers:
  - url: https://api.example.com
paths:
  /versions:
    get:
      operationId: getVersion
      parameters:
        - name: v
          in: query
          schema:
            $ref: "#/components/schemas/OtherVersion"
components:
  schemas:
    OtherVersion:
      type: object
      properties:
        foo:
          $ref: "#/components/schemas/OtherVersion"
`

func writeDoc(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

func TestLoadOpenAPI(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "swagger.yaml", petsDocument)

	api, err := loadOpenAPI(NewDirFetcher(dir), "swagger.yaml")
	if err != nil {
		t.Fatalf("loadOpenAPI: %v", err)
	}

	if api.BasePath != "https://api.example.com/v1" {
		t.Errorf("base path = %q", api.BasePath)
	}
	if len(api.Operations) != 2 {
		t.Fatalf("got %d operations, want 2", len(api.Operations))
	}

	list := api.Operations["listPets"]
	if list == nil {
		t.Fatal("listPets missing")
	}
	if list.Method != schema.HTTPMethodGet || list.PathTemplate != "/pets" {
		t.Errorf("listPets = %s %s", list.Method, list.PathTemplate)
	}
	if len(list.Parameters) != 1 || list.Parameters[0].Name != "kind" || !list.Parameters[0].Required {
		t.Errorf("listPets parameters = %+v", list.Parameters)
	}
	if list.Pagination.Kind != schema.PaginationKindPageOffset {
		t.Fatalf("pagination kind = %q", list.Pagination.Kind)
	}
	po := list.Pagination.PageOffset
	if po.PageParam != "page" || po.StartPage != 1 || po.LimitParam != "size" || po.MaxLimit != 25 {
		t.Errorf("pageOffset = %+v", po)
	}
	if po.ResultsPath != "$response.body#/items" {
		t.Errorf("resultsPath = %q", po.ResultsPath)
	}

	resp := list.Responses["200"]
	if resp == nil || resp.Kind != schema.SchemaKindArray {
		t.Fatalf("200 response schema = %+v", resp)
	}
	if resp.Items == nil || resp.Items.Kind != schema.SchemaKindRef || resp.Items.Ref != "#/components/schemas/Pet" {
		t.Errorf("items schema = %+v", resp.Items)
	}

	pet := api.SchemaDict["#/components/schemas/Pet"]
	if pet == nil || pet.Kind != schema.SchemaKindObject {
		t.Fatalf("Pet schema = %+v", pet)
	}
	if pet.Properties["name"].Kind != schema.SchemaKindString || pet.Properties["age"].Kind != schema.SchemaKindInteger {
		t.Errorf("Pet properties = %+v", pet.Properties)
	}

	create := api.Operations["createPet"]
	if create == nil || create.Method != schema.HTTPMethodPost {
		t.Fatalf("createPet = %+v", create)
	}
	body := create.RequestBody["application/json"]
	if body == nil || body.Kind != schema.SchemaKindRef || body.Ref != "#/components/schemas/Pet" {
		t.Errorf("request body schema = %+v", body)
	}
	if create.Pagination.Kind != schema.PaginationKindUnpaginated {
		t.Errorf("createPet pagination = %q", create.Pagination.Kind)
	}
}

func TestLoadOpenAPICyclicalSchema(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "swagger.yaml", cyclicDocument)

	api, err := loadOpenAPI(NewDirFetcher(dir), "swagger.yaml")
	if err != nil {
		t.Fatalf("loadOpenAPI: %v", err)
	}

	op := api.Operations["getVersion"]
	if op == nil {
		t.Fatal("getVersion missing")
	}
	param := op.Parameters[0].Schema
	if param.Kind != schema.SchemaKindRef || param.Ref != "#/components/schemas/OtherVersion" {
		t.Fatalf("parameter schema = %+v", param)
	}

	entry := api.SchemaDict["#/components/schemas/OtherVersion"]
	if entry == nil || entry.Kind != schema.SchemaKindObject {
		t.Fatalf("dictionary entry = %+v", entry)
	}
	foo := entry.Properties["foo"]
	if foo == nil || foo.Kind != schema.SchemaKindRef || foo.Ref != "#/components/schemas/OtherVersion" {
		t.Errorf("cycle endpoint = %+v", foo)
	}
}

func TestOpenAPIRoundTrip(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "swagger.yaml", petsDocument)

	api, err := loadOpenAPI(NewDirFetcher(dir), "swagger.yaml")
	if err != nil {
		t.Fatalf("loadOpenAPI: %v", err)
	}

	raw, err := encodeOpenAPI(api)
	if err != nil {
		t.Fatalf("encodeOpenAPI: %v", err)
	}
	writeDoc(t, dir, "rewritten.yaml", string(raw))

	reloaded, err := loadOpenAPI(NewDirFetcher(dir), "rewritten.yaml")
	if err != nil {
		t.Fatalf("reload: %v", err)
	}

	if reloaded.BasePath != api.BasePath {
		t.Errorf("base path drifted: %q vs %q", reloaded.BasePath, api.BasePath)
	}
	if !reflect.DeepEqual(reloaded.SchemaDict, api.SchemaDict) {
		t.Errorf("schema dictionary drifted:\n  first  %+v\n  second %+v", api.SchemaDict, reloaded.SchemaDict)
	}
	if len(reloaded.Operations) != len(api.Operations) {
		t.Fatalf("operation count drifted: %d vs %d", len(reloaded.Operations), len(api.Operations))
	}
	for name, op := range api.Operations {
		got := reloaded.Operations[name]
		if got == nil {
			t.Fatalf("operation %q lost in round trip", name)
		}
		if got.Method != op.Method || got.PathTemplate != op.PathTemplate {
			t.Errorf("%s: %s %s vs %s %s", name, got.Method, got.PathTemplate, op.Method, op.PathTemplate)
		}
		if !reflect.DeepEqual(got.Parameters, op.Parameters) {
			t.Errorf("%s parameters drifted", name)
		}
		if !reflect.DeepEqual(got.Pagination, op.Pagination) {
			t.Errorf("%s pagination drifted: %+v vs %+v", name, got.Pagination, op.Pagination)
		}
		if !reflect.DeepEqual(got.RequestBody, op.RequestBody) {
			t.Errorf("%s request body drifted", name)
		}
		if !reflect.DeepEqual(got.Responses, op.Responses) {
			t.Errorf("%s responses drifted", name)
		}
	}
}

func TestWriterNeverOverwritesInPlace(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "swagger.yaml", petsDocument)

	api, err := loadOpenAPI(NewDirFetcher(dir), "swagger.yaml")
	if err != nil {
		t.Fatalf("loadOpenAPI: %v", err)
	}
	connector := &schema.Connector{
		Name: "pets",
		Manifest: &schema.Manifest{
			Kind: schema.ManifestHTTP,
			HTTP: &schema.HTTPManifest{Source: "swagger.yaml"},
		},
		CommonAPI: api,
	}

	if err := Write(dir, connector, nil); err != nil {
		t.Fatalf("Write: %v", err)
	}

	original, err := os.ReadFile(filepath.Join(dir, "swagger.yaml"))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(original) != petsDocument {
		t.Error("Write must not touch the live swagger.yaml")
	}
	for _, name := range []string{"manifest.json.new", "swagger.yaml.new"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("expected %s to be written: %v", name, err)
		}
	}
}
