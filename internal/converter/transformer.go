// =============================================================================
// GPS to ERP Converter - Transformation Chain
// =============================================================================
//
// A Transformer applies an ordered list of named stages to every row of a
// working table. Each stage derives or rewrites fields of one row and may
// read fields written by earlier stages.
//
// STAGE KINDS:
//   - Constant: write a literal into a field
//   - Derive:   write the result of a row function into a field
//   - Copy:     copy one field into another
//   - Step:     arbitrary row rewrite that can fail
//
// Stages run stage by stage over all rows, so a failing stage reports the
// first offending row and no later stage runs.
//
// =============================================================================

package converter

import (
	"fmt"

	"github.com/ginjaninja78/GPS-to-ERP-conversion/internal/types"
)

// =============================================================================
// STAGES
// =============================================================================

// Stage is one named row rewrite.
type Stage struct {
	// Name identifies the stage in errors and debug logs.
	Name string

	// Apply rewrites one row in place.
	Apply func(row types.Row) error
}

// Constant returns a stage writing value into field.
func Constant(field, value string) Stage {
	return Stage{
		Name: "set " + field,
		Apply: func(row types.Row) error {
			row[field] = value
			return nil
		},
	}
}

// Derive returns a stage writing fn(row) into field.
func Derive(field string, fn func(types.Row) string) Stage {
	return Stage{
		Name: "derive " + field,
		Apply: func(row types.Row) error {
			row[field] = fn(row)
			return nil
		},
	}
}

// Copy returns a stage copying src into dst.
func Copy(dst, src string) Stage {
	return Stage{
		Name: "copy " + src + " -> " + dst,
		Apply: func(row types.Row) error {
			row[dst] = row[src]
			return nil
		},
	}
}

// Step returns a stage from an arbitrary row function.
func Step(name string, fn func(types.Row) error) Stage {
	return Stage{Name: name, Apply: fn}
}

// =============================================================================
// TRANSFORMER
// =============================================================================

// Transformer applies stages in order.
type Transformer struct {
	stages []Stage
}

// NewTransformer creates a Transformer with the given stages.
func NewTransformer(stages ...Stage) *Transformer {
	return &Transformer{stages: stages}
}

// Add appends stages to the chain.
func (t *Transformer) Add(stages ...Stage) *Transformer {
	t.stages = append(t.stages, stages...)
	return t
}

// Stages returns the stage names in execution order.
func (t *Transformer) Stages() []string {
	names := make([]string, len(t.stages))
	for i, s := range t.stages {
		names[i] = s.Name
	}
	return names
}

// Transform runs every stage over every row of table.
//
// RETURNS:
//   - An error naming the stage and the 1-based data row that failed.
func (t *Transformer) Transform(table *types.Table) error {
	for _, stage := range t.stages {
		for i, row := range table.Rows {
			if err := stage.Apply(row); err != nil {
				return fmt.Errorf("stage %q failed on data row %d: %w", stage.Name, i+1, err)
			}
		}
	}
	return nil
}
