package dto

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/jsamuelsen11/todo-service/internal/domain"
	"github.com/jsamuelsen11/todo-service/internal/domain/todo"
)

// maxBodyBytes caps how much of a request body is read before validation.
const maxBodyBytes = 1 << 20

const (
	msgInvalidJSON   = "must be a valid JSON object"
	msgNonNegInteger = "must be a non-negative integer"
)

//go:embed schemas/*.json
var schemaFS embed.FS

var (
	createTodoSchema = mustCompileSchema("schemas/create_todo.json")
	patchTodoSchema  = mustCompileSchema("schemas/patch_todo.json")
	paginationSchema = mustCompileSchema("schemas/pagination.json")
)

// missingPropertyPattern extracts property names from the "missing
// properties: 'a', 'b'" message the validator reports for required fields.
var missingPropertyPattern = regexp.MustCompile(`'([^']+)'`)

// CreateTodoRequest represents the JSON body for creating a new todo.
type CreateTodoRequest struct {
	Title       string  `json:"title"`
	Description *string `json:"description,omitempty"`
	Completed   *bool   `json:"completed,omitempty"`
}

// ToDomain converts the request into the domain input type.
func (r CreateTodoRequest) ToDomain() todo.NewTodo {
	return todo.NewTodo{
		Title:       r.Title,
		Description: r.Description,
		Completed:   r.Completed,
	}
}

// PatchTodoRequest represents the JSON body for a partial todo update.
// A nil field means the field was not supplied.
type PatchTodoRequest struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Completed   *bool   `json:"completed,omitempty"`
}

// ToDomain converts the request into the domain patch type.
func (r PatchTodoRequest) ToDomain() todo.Patch {
	return todo.Patch{
		Title:       r.Title,
		Description: r.Description,
		Completed:   r.Completed,
	}
}

// PaginationRequest selects a window of the todo list.
type PaginationRequest struct {
	Offset *int `json:"offset,omitempty"`
	Fetch  *int `json:"fetch,omitempty"`
}

// ToDomain converts the request into the domain pagination type.
func (r PaginationRequest) ToDomain() todo.Pagination {
	return todo.Pagination{Offset: r.Offset, Fetch: r.Fetch}
}

// UnmarshalJSON accepts any JSON number with an integral value, so 2.0
// decodes as 2. Values that do not fit an int are reported per field.
func (r *PaginationRequest) UnmarshalJSON(data []byte) error {
	var raw struct {
		Offset *json.Number `json:"offset"`
		Fetch  *json.Number `json:"fetch"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	var err error
	if r.Offset, err = integralField("offset", raw.Offset); err != nil {
		return err
	}
	r.Fetch, err = integralField("fetch", raw.Fetch)
	return err
}

// fieldError rejects a single body field after schema validation passed.
type fieldError struct {
	field, msg string
}

func (e *fieldError) Error() string { return e.field + ": " + e.msg }

// maxExactFloatInt is the largest integer a float64 holds exactly.
const maxExactFloatInt = 1 << 53

func integralField(name string, n *json.Number) (*int, error) {
	if n == nil {
		return nil, nil
	}
	if i, err := strconv.Atoi(n.String()); err == nil {
		return &i, nil
	}
	f, err := n.Float64()
	if err != nil || f != math.Trunc(f) || math.Abs(f) > maxExactFloatInt {
		return nil, &fieldError{field: name, msg: msgNonNegInteger}
	}
	i := int(f)
	return &i, nil
}

// DecodeCreateTodo reads a create body, validates it against the create
// schema and decodes it. Returns a *domain.ValidationError on bad input.
func DecodeCreateTodo(body io.Reader) (CreateTodoRequest, error) {
	var req CreateTodoRequest
	err := decodeValidated(body, createTodoSchema, &req, false)
	return req, err
}

// DecodePatchTodo reads a patch body, validates it against the patch schema
// and decodes it. Returns a *domain.ValidationError on bad input.
func DecodePatchTodo(body io.Reader) (PatchTodoRequest, error) {
	var req PatchTodoRequest
	err := decodeValidated(body, patchTodoSchema, &req, false)
	return req, err
}

// DecodePagination reads pagination from an optional JSON body and the
// offset and fetch query parameters. A query parameter overrides the body
// field of the same name.
func DecodePagination(r *http.Request) (PaginationRequest, error) {
	var req PaginationRequest
	if r.Body != nil {
		if err := decodeValidated(r.Body, paginationSchema, &req, true); err != nil {
			return req, err
		}
	}

	q := r.URL.Query()
	fields := make(map[string]string)
	for name, dst := range map[string]**int{"offset": &req.Offset, "fetch": &req.Fetch} {
		if !q.Has(name) {
			continue
		}
		v, err := strconv.Atoi(q.Get(name))
		if err != nil || v < 0 {
			fields["query."+name] = msgNonNegInteger
			continue
		}
		*dst = &v
	}

	if len(fields) > 0 {
		return req, &domain.ValidationError{Fields: fields}
	}
	return req, nil
}

// decodeValidated reads body, checks it against schema and unmarshals it into
// dst. An empty body is accepted only when allowEmpty is set.
func decodeValidated(body io.Reader, schema *jsonschema.Schema, dst any, allowEmpty bool) error {
	data, err := io.ReadAll(io.LimitReader(body, maxBodyBytes))
	if err != nil {
		return &domain.ValidationError{Fields: map[string]string{"body": "could not be read"}}
	}
	if len(bytes.TrimSpace(data)) == 0 {
		if allowEmpty {
			return nil
		}
		return &domain.ValidationError{Fields: map[string]string{"body": msgInvalidJSON}}
	}

	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return &domain.ValidationError{Fields: map[string]string{"body": msgInvalidJSON}}
	}

	if err := schema.Validate(doc); err != nil {
		var ve *jsonschema.ValidationError
		if !errors.As(err, &ve) {
			return &domain.ValidationError{Fields: map[string]string{"body": err.Error()}}
		}
		fields := make(map[string]string)
		collectSchemaErrors(fields, ve)
		return &domain.ValidationError{Fields: fields}
	}

	if err := json.Unmarshal(data, dst); err != nil {
		var fe *fieldError
		if errors.As(err, &fe) {
			return &domain.ValidationError{Fields: map[string]string{fe.field: fe.msg}}
		}
		return &domain.ValidationError{Fields: map[string]string{"body": msgInvalidJSON}}
	}
	return nil
}

// collectSchemaErrors flattens the validator's error tree into field messages
// keyed by dotted instance path.
func collectSchemaErrors(fields map[string]string, ve *jsonschema.ValidationError) {
	if len(ve.Causes) > 0 {
		for _, cause := range ve.Causes {
			collectSchemaErrors(fields, cause)
		}
		return
	}

	if rest, ok := strings.CutPrefix(ve.Message, "missing properties: "); ok {
		for _, m := range missingPropertyPattern.FindAllStringSubmatch(rest, -1) {
			fields[m[1]] = domain.MsgRequired
		}
		return
	}

	loc := strings.TrimPrefix(strings.TrimPrefix(ve.InstanceLocation, "#"), "/")
	if loc == "" {
		loc = "body"
	}
	fields[strings.ReplaceAll(loc, "/", ".")] = ve.Message
}

func mustCompileSchema(name string) *jsonschema.Schema {
	data, err := schemaFS.ReadFile(name)
	if err != nil {
		panic(fmt.Sprintf("reading schema %s: %v", name, err))
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, bytes.NewReader(data)); err != nil {
		panic(fmt.Sprintf("adding schema %s: %v", name, err))
	}
	return compiler.MustCompile(name)
}
