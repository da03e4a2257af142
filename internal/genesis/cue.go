package genesis

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
)

// schemaSource constrains CUE genesis files. Amounts may be written as
// integers or as decimal strings.
const schemaSource = `
#Allocation: {
	owner:  string & !=""
	label:  string & !=""
	amount: (int & >0) | (string & =~"^[0-9]+$")
}

#Genesis: {
	allocations: [...#Allocation]
}
`

// ParseError reports a CUE genesis problem with its source position.
type ParseError struct {
	Message string
	Pos     token.Pos
}

func (e *ParseError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Message)
	}
	return e.Message
}

// ParseCUE evaluates a CUE genesis document and checks it against the
// genesis schema. filename is only used in error positions.
func ParseCUE(data []byte, filename string) (*Genesis, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaSource, cue.Filename("genesis-schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compile genesis schema: %w", err)
	}

	value := ctx.CompileBytes(data, cue.Filename(filename))
	if err := value.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	unified := schema.LookupPath(cue.ParsePath("#Genesis")).Unify(value)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}

	iter, err := unified.LookupPath(cue.ParsePath("allocations")).List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	g := &Genesis{Allocations: []Allocation{}}
	for iter.Next() {
		a, err := decodeAllocation(iter.Value())
		if err != nil {
			return nil, err
		}
		g.Allocations = append(g.Allocations, a)
	}
	return g, nil
}

func decodeAllocation(v cue.Value) (Allocation, error) {
	var a Allocation

	owner, err := v.LookupPath(cue.ParsePath("owner")).String()
	if err != nil {
		return a, formatCUEError(err)
	}
	label, err := v.LookupPath(cue.ParsePath("label")).String()
	if err != nil {
		return a, formatCUEError(err)
	}
	a.Owner, a.Label = owner, label

	amountVal := v.LookupPath(cue.ParsePath("amount"))
	switch amountVal.Kind() {
	case cue.IntKind:
		n, err := amountVal.Int(nil)
		if err != nil {
			return a, formatCUEError(err)
		}
		a.Amount = n.String()
	case cue.StringKind:
		s, err := amountVal.String()
		if err != nil {
			return a, formatCUEError(err)
		}
		a.Amount = s
	default:
		return a, &ParseError{Message: fmt.Sprintf("amount must be an integer or string, got %s", amountVal.Kind()), Pos: amountVal.Pos()}
	}
	return a, nil
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	first := errs[0]
	if positions := errors.Positions(first); len(positions) > 0 {
		return &ParseError{Message: first.Error(), Pos: positions[0]}
	}
	return err
}
