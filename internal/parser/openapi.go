package parser

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"path"
	"regexp"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/prasenjit/go-mockapi/internal/models"
	"github.com/prasenjit/go-mockapi/internal/storage"
)

// maxSchemaDepth stops template generation for deeply nested or recursive schemas
const maxSchemaDepth = 6

// Parser turns OpenAPI 3 documents into mock endpoint collections
type Parser struct{}

// NewParser creates a new OpenAPI parser
func NewParser() *Parser {
	return &Parser{}
}

// Options controls how a document is imported
type Options struct {
	CollectionID string // Defaults to a slug of the document title
	BasePath     string // Prefixed to every path
}

// Parse converts an OpenAPI 3 document (YAML or JSON) into a collection.
// Request body schemas become validation rules and response schemas become
// tag templates.
func (p *Parser) Parse(content []byte, opts Options) (*models.Collection, error) {
	loader := openapi3.NewLoader()
	loader.IsExternalRefsAllowed = true

	doc, err := loader.LoadFromData(content)
	if err != nil {
		return nil, fmt.Errorf("failed to parse OpenAPI spec: %w", err)
	}

	if err := doc.Validate(loader.Context); err != nil {
		return nil, fmt.Errorf("invalid OpenAPI spec: %w", err)
	}

	title := "Imported API"
	description := ""
	if doc.Info != nil {
		if doc.Info.Title != "" {
			title = doc.Info.Title
		}
		description = doc.Info.Description
	}

	collectionID := opts.CollectionID
	if collectionID == "" {
		collectionID = slugify(title)
	}

	return &models.Collection{
		ID:          collectionID,
		Name:        title,
		Description: description,
		Endpoints:   p.extractEndpoints(doc, collectionID, normalizeBasePath(opts.BasePath)),
	}, nil
}

// extractEndpoints builds one endpoint per operation, ordered by path then method
func (p *Parser) extractEndpoints(doc *openapi3.T, collectionID, basePath string) []*models.Endpoint {
	endpoints := make([]*models.Endpoint, 0)
	if doc.Paths == nil {
		return endpoints
	}

	for _, pathPattern := range doc.Paths.InMatchingOrder() {
		pathItem := doc.Paths.Value(pathPattern)
		if pathItem == nil {
			continue
		}

		operations := pathItem.Operations()
		methods := make([]string, 0, len(operations))
		for method := range operations {
			methods = append(methods, method)
		}
		sort.Strings(methods)

		for _, method := range methods {
			fullPath := joinPath(basePath, pathPattern)
			endpoints = append(endpoints, buildEndpoint(collectionID, method, fullPath, operations[method]))
		}
	}

	sort.SliceStable(endpoints, func(i, j int) bool {
		if endpoints[i].Path != endpoints[j].Path {
			return endpoints[i].Path < endpoints[j].Path
		}
		return endpoints[i].Method < endpoints[j].Method
	})

	return endpoints
}

func buildEndpoint(collectionID, method, fullPath string, op *openapi3.Operation) *models.Endpoint {
	ep := &models.Endpoint{
		ID:           storage.EndpointID(collectionID, method, fullPath),
		CollectionID: collectionID,
		Name:         endpointName(method, fullPath, op),
		Method:       method,
		Path:         fullPath,
		StatusCode:   http.StatusOK,
		ResponseBody: models.DefaultResponseBody,
		Headers:      make(map[string]string),
		Delay:        models.DefaultDelay(),
	}

	if status, mediaType, body, isArray, ok := successResponse(op); ok {
		ep.StatusCode = status
		if mediaType != "" {
			ep.Headers["Content-Type"] = mediaType
		}
		if body != "" {
			ep.ResponseBody = body
		}
		if isArray {
			ep.Array = models.DefaultArray()
		}
	}

	if models.IsMutating(method) {
		ep.Validation = requestValidation(op)
	}

	return ep
}

func endpointName(method, fullPath string, op *openapi3.Operation) string {
	switch {
	case op.Summary != "":
		return op.Summary
	case op.OperationID != "":
		return op.OperationID
	default:
		return method + " " + fullPath
	}
}

// successResponse picks the first documented success status and renders its
// JSON body. Examples are used verbatim; schemas become tag templates.
func successResponse(op *openapi3.Operation) (status int, mediaType, body string, isArray, ok bool) {
	if op.Responses == nil {
		return 0, "", "", false, false
	}

	for _, code := range []int{200, 201, 202, 204} {
		ref := op.Responses.Status(code)
		if ref == nil || ref.Value == nil {
			continue
		}
		if code == http.StatusNoContent {
			return code, "", "", false, true
		}

		mediaType, content := jsonContent(ref.Value.Content)
		if content == nil {
			return code, "", "", false, true
		}

		var schema *openapi3.Schema
		if content.Schema != nil {
			schema = content.Schema.Value
		}

		if example, found := contentExample(content); found {
			if data, err := marshalBody(example); err == nil {
				return code, mediaType, data, false, true
			}
		}

		if schema == nil {
			return code, mediaType, "", false, true
		}

		data, err := marshalBody(templateFor(schema, "", 0))
		if err != nil {
			return code, mediaType, "", false, true
		}
		return code, mediaType, data, schemaIs(schema, openapi3.TypeArray), true
	}

	return 0, "", "", false, false
}

// marshalBody indents v without HTML escaping so tags keep their brackets
func marshalBody(v interface{}) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

func jsonContent(content openapi3.Content) (string, *openapi3.MediaType) {
	mediaTypes := make([]string, 0, len(content))
	for mt := range content {
		mediaTypes = append(mediaTypes, mt)
	}
	sort.Strings(mediaTypes)

	for _, mt := range mediaTypes {
		if strings.Contains(mt, "json") {
			return mt, content[mt]
		}
	}
	return "", nil
}

func contentExample(content *openapi3.MediaType) (interface{}, bool) {
	if content.Example != nil {
		return content.Example, true
	}

	names := make([]string, 0, len(content.Examples))
	for name := range content.Examples {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		ex := content.Examples[name]
		if ex != nil && ex.Value != nil && ex.Value.Value != nil {
			return ex.Value.Value, true
		}
	}
	return nil, false
}

// templateFor renders a schema as a JSON value whose leaves are quoted tags.
// A quoted tag standing alone expands to a typed JSON value.
func templateFor(schema *openapi3.Schema, name string, depth int) interface{} {
	if schema == nil || depth > maxSchemaDepth {
		return nil
	}
	if schema.Example != nil {
		return schema.Example
	}
	if len(schema.Enum) > 0 {
		return schema.Enum[0]
	}

	switch {
	case schemaIs(schema, openapi3.TypeObject) || len(schema.Properties) > 0:
		obj := make(map[string]interface{}, len(schema.Properties))
		for prop, ref := range schema.Properties {
			if ref == nil {
				continue
			}
			obj[prop] = templateFor(ref.Value, prop, depth+1)
		}
		return obj
	case schemaIs(schema, openapi3.TypeArray):
		if schema.Items == nil {
			return []interface{}{}
		}
		return []interface{}{templateFor(schema.Items.Value, name, depth+1)}
	case schemaIs(schema, openapi3.TypeInteger):
		return tag(integerTag(name))
	case schemaIs(schema, openapi3.TypeNumber):
		if strings.Contains(strings.ToLower(name), "price") || strings.Contains(strings.ToLower(name), "amount") {
			return tag("price")
		}
		return tag("float")
	case schemaIs(schema, openapi3.TypeBoolean):
		return tag("boolean")
	case schemaIs(schema, openapi3.TypeString):
		return tag(stringTag(schema.Format, name))
	default:
		return nil
	}
}

func tag(name string) string {
	return "<<" + name + ">>"
}

func integerTag(name string) string {
	n := strings.ToLower(name)
	switch {
	case n == "age":
		return "age"
	case strings.Contains(n, "status"):
		return "httpStatusCode"
	default:
		return "number"
	}
}

var formatTags = map[string]string{
	"email":     "email",
	"uuid":      "uuid",
	"date":      "date",
	"date-time": "datetime",
	"uri":       "url",
	"url":       "url",
	"password":  "password",
}

// nameTags maps normalised property names to tags; checked in order
var nameTags = []struct {
	contains string
	tag      string
}{
	{"email", "email"},
	{"firstname", "firstname"},
	{"lastname", "lastname"},
	{"username", "username"},
	{"password", "password"},
	{"phone", "phone"},
	{"avatar", "avatar"},
	{"image", "image"},
	{"url", "url"},
	{"street", "street"},
	{"address", "address"},
	{"city", "city"},
	{"country", "country"},
	{"zip", "zipcode"},
	{"company", "company"},
	{"jobtitle", "jobTitle"},
	{"product", "product"},
	{"color", "color"},
	{"gender", "gender"},
	{"token", "jwt"},
	{"description", "sentence"},
	{"title", "sentence"},
	{"content", "paragraph"},
	{"name", "fullname"},
}

func stringTag(format, name string) string {
	if t, ok := formatTags[format]; ok {
		return t
	}

	if name == "id" || strings.HasSuffix(name, "Id") || strings.HasSuffix(name, "ID") || strings.HasSuffix(name, "_id") {
		return "uuid"
	}

	n := strings.ToLower(strings.NewReplacer("_", "", "-", "").Replace(name))
	for _, nt := range nameTags {
		if strings.Contains(n, nt.contains) {
			return nt.tag
		}
	}
	return "string"
}

// requestValidation derives rules from the JSON request body schema
func requestValidation(op *openapi3.Operation) models.ValidationConfig {
	cfg := models.ValidationConfig{
		Rules:          make([]models.ValidationRule, 0),
		ErrorScenarios: make([]models.ErrorScenario, 0),
	}
	if op.RequestBody == nil || op.RequestBody.Value == nil {
		return cfg
	}

	_, content := jsonContent(op.RequestBody.Value.Content)
	if content == nil || content.Schema == nil || content.Schema.Value == nil {
		return cfg
	}

	schema := content.Schema.Value
	cfg.Rules = rulesFor(schema)
	cfg.Enabled = len(cfg.Rules) > 0
	cfg.StrictMode = schema.AdditionalProperties.Has != nil && !*schema.AdditionalProperties.Has
	return cfg
}

// rulesFor lists required rules first, in schema order, then per-property rules by name
func rulesFor(schema *openapi3.Schema) []models.ValidationRule {
	rules := make([]models.ValidationRule, 0)

	for _, field := range schema.Required {
		rules = append(rules, rule(field, models.RuleRequired, models.Value{}, field+" is required"))
	}

	names := make([]string, 0, len(schema.Properties))
	for name := range schema.Properties {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		ref := schema.Properties[name]
		if ref == nil || ref.Value == nil {
			continue
		}
		prop := ref.Value

		if schemaIs(prop, openapi3.TypeInteger) || schemaIs(prop, openapi3.TypeNumber) {
			rules = append(rules, rule(name, models.RuleNumeric, models.Value{}, name+" must be a number"))
			continue
		}
		if !schemaIs(prop, openapi3.TypeString) {
			continue
		}

		if prop.Format == "email" {
			rules = append(rules, rule(name, models.RuleEmail, models.Value{}, name+" must be a valid email"))
		}
		if prop.MinLength > 0 {
			rules = append(rules, rule(name, models.RuleMinLength, models.NumberValue(float64(prop.MinLength)),
				fmt.Sprintf("%s must be at least %d characters", name, prop.MinLength)))
		}
		if prop.MaxLength != nil {
			rules = append(rules, rule(name, models.RuleMaxLength, models.NumberValue(float64(*prop.MaxLength)),
				fmt.Sprintf("%s must be at most %d characters", name, *prop.MaxLength)))
		}
		if prop.Pattern != "" {
			rules = append(rules, rule(name, models.RulePattern, models.StringValue(prop.Pattern), name+" has an invalid format"))
		}
	}

	return rules
}

func rule(field string, kind models.RuleKind, value models.Value, message string) models.ValidationRule {
	return models.ValidationRule{
		ID:      field + "-" + string(kind),
		Field:   field,
		Kind:    kind,
		Value:   value,
		Message: message,
		Enabled: true,
	}
}

func schemaIs(schema *openapi3.Schema, typ string) bool {
	return schema.Type != nil && schema.Type.Is(typ)
}

// normalizeBasePath ensures the base path starts with / and has no trailing /
func normalizeBasePath(basePath string) string {
	if basePath == "" || basePath == "/" {
		return ""
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	return strings.TrimSuffix(basePath, "/")
}

func joinPath(basePath, pathPattern string) string {
	if basePath == "" {
		return pathPattern
	}
	joined := path.Join(basePath, pathPattern)
	if strings.HasSuffix(pathPattern, "/") && !strings.HasSuffix(joined, "/") {
		joined += "/"
	}
	return joined
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// slugify converts a title to a file and URL friendly identifier
func slugify(title string) string {
	slug := strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(title), "-"), "-")
	if slug == "" {
		return "collection"
	}
	return slug
}
