package handlers

import (
	"context"
	"sync"

	"github.com/invopop/jsonschema"
	"github.com/maruel/reportdb/internal/models"
	"github.com/maruel/reportdb/internal/server/dto"
)

// SchemaHandler serves the JSON schema of the document types.
type SchemaHandler struct{}

var elementSchema = sync.OnceValue(func() *jsonschema.Schema {
	r := jsonschema.Reflector{Anonymous: true, DoNotReference: true}
	s := r.Reflect(&models.Element{})
	s.Title = "Element"
	return s
})

// ElementSchema returns the JSON schema of a canvas element.
func (h *SchemaHandler) ElementSchema(ctx context.Context, req *dto.SchemaRequest) (*jsonschema.Schema, error) {
	return elementSchema(), nil
}
