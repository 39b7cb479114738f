package condition

import "github.com/milk9111/animgraph/anim"

// Condition is a compiled edge predicate. Bytecode is only valid for the
// InputDecl layout it was compiled against.
type Condition struct {
	Expression string
	Bytecode   []byte
	Err        ErrorCode
}

// Compile recompiles the condition from expr. On failure the previous
// bytecode stays in place and Err records the failure.
func (c *Condition) Compile(expr string, decl *anim.InputDecl) error {
	c.Expression = expr
	code, err := Compile(expr, decl)
	if err != nil {
		c.Err = CodeOf(err)
		return err
	}
	c.Bytecode = code
	c.Err = None
	return nil
}

// Recompile rebuilds the bytecode after decl changed structurally. Unlike
// Compile, a failure clears the bytecode so stale offsets are never read.
func (c *Condition) Recompile(decl *anim.InputDecl) error {
	if err := c.Compile(c.Expression, decl); err != nil {
		c.Bytecode = nil
		return err
	}
	return nil
}

// Eval is false for a condition that never compiled.
func (c *Condition) Eval(rc *anim.RunningContext) bool {
	return Eval(c.Bytecode, rc)
}
