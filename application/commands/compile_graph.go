package commands

import (
	"cnlgraph/pkg/utils"
)

// CompileGraphCommand submits CNL text for compilation against one
// graph.
type CompileGraphCommand struct {
	GraphID string `json:"graph_id" validate:"required"`
	UserID  string `json:"user_id" validate:"required"`
	Text    string `json:"text" validate:"required"`

	// Strict aborts on any error and applies nothing; lenient compiles
	// what it can and reports the rest.
	Strict bool `json:"strict"`

	// AllowImplicitTargets auto-creates untyped stub nodes for
	// undeclared relation targets instead of rejecting them.
	AllowImplicitTargets bool `json:"allow_implicit_targets"`
}

// Validate implements bus.Command.
func (c CompileGraphCommand) Validate() error {
	return utils.ValidateStruct(c)
}
