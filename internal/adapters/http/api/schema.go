package api

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed schemas/*.json
var schemaFS embed.FS

const (
	schemaProject           = "project"
	schemaVolunteer         = "volunteer"
	schemaProjectStatus     = "project_status"
	schemaApplication       = "application"
	schemaApplicationStatus = "application_status"
	schemaChat              = "chat"
)

var requestSchemas = mustLoadSchemas(
	schemaProject,
	schemaVolunteer,
	schemaProjectStatus,
	schemaApplication,
	schemaApplicationStatus,
	schemaChat,
)

func mustLoadSchemas(names ...string) map[string]*gojsonschema.Schema {
	out := make(map[string]*gojsonschema.Schema, len(names))
	for _, name := range names {
		raw, err := schemaFS.ReadFile("schemas/" + name + ".json")
		if err != nil {
			panic(fmt.Sprintf("read schema %s: %v", name, err))
		}
		s, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(raw))
		if err != nil {
			panic(fmt.Sprintf("compile schema %s: %v", name, err))
		}
		out[name] = s
	}
	return out
}

// decodeValid reads the body, validates it against the named schema and
// decodes it into dst. Every failure wraps ErrBadRequest.
func decodeValid(r *http.Request, maxBytes int64, schema string, dst any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBytes+1))
	if err != nil {
		return fmt.Errorf("%w: read body: %w", ErrBadRequest, err)
	}
	if int64(len(body)) > maxBytes {
		return fmt.Errorf("%w: body exceeds %d bytes", ErrBadRequest, maxBytes)
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return fmt.Errorf("%w: empty body", ErrBadRequest)
	}
	if !json.Valid(body) {
		return fmt.Errorf("%w: malformed JSON", ErrBadRequest)
	}

	result, err := requestSchemas[schema].Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBadRequest, err)
	}
	if !result.Valid() {
		errs := make([]string, len(result.Errors()))
		for i, desc := range result.Errors() {
			errs[i] = desc.String()
		}
		return fmt.Errorf("%w: %s", ErrBadRequest, strings.Join(errs, "; "))
	}

	if err := json.Unmarshal(body, dst); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return fmt.Errorf("%w: field %s has the wrong type", ErrBadRequest, typeErr.Field)
		}
		return fmt.Errorf("%w: %w", ErrBadRequest, err)
	}
	return nil
}
