package script

import (
	"fmt"
	"math"
	"strings"

	"github.com/d5/tengo/v2"
	"github.com/d5/tengo/v2/stdlib"
	"github.com/sirupsen/logrus"

	"github.com/milk9111/animgraph/anim"
	"github.com/milk9111/animgraph/ecs/component"
	"github.com/milk9111/animgraph/logger"
	"github.com/milk9111/animgraph/prefabs"
)

// Driver runs a tengo script that writes controller inputs, standing in for
// gameplay code in tools and tests. The script defines
//
//	update := func(engine, t) { ... }
//
// and engine exposes set(name, value), get(name), set_set(index), get_set(),
// state() and log(msg).
type Driver struct {
	Path string
	Log  logrus.FieldLogger

	compiled *tengo.Compiled
}

const dispatchScript = `
if __phase == "update" {
	update(__engine, __time)
}
`

// Load compiles the script at path, preferring a file under prefabs.Root.
func Load(path string) (*Driver, error) {
	src, err := prefabs.LoadScript(path)
	if err != nil {
		return nil, fmt.Errorf("script: load %s: %w", path, err)
	}
	return New(path, src)
}

func New(name string, src []byte) (*Driver, error) {
	full := string(src) + "\n" + dispatchScript
	s := tengo.NewScript([]byte(full))
	_ = s.Add("__phase", "")
	_ = s.Add("__engine", map[string]any{})
	_ = s.Add("__time", 0.0)
	s.SetImports(stdlib.GetModuleMap(stdlib.AllModuleNames()...))

	compiled, err := s.Compile()
	if err != nil {
		return nil, fmt.Errorf("script: compile %s: %w", name, err)
	}
	d := &Driver{Path: name, compiled: compiled}

	// Run once so top-level definitions exist before the first update.
	if err := d.run("noop", 0, &tengo.ImmutableMap{Value: map[string]tengo.Object{}}); err != nil {
		return nil, fmt.Errorf("script: init %s: %w", name, err)
	}
	if !compiled.IsDefined("update") {
		return nil, fmt.Errorf("script: %s does not define update", name)
	}
	return d, nil
}

// Update calls the script's update with the elapsed time t in seconds.
func (d *Driver) Update(t float64, c *component.AnimController) error {
	if d == nil || c == nil {
		return nil
	}
	if err := d.run("update", t, d.engine(c)); err != nil {
		return fmt.Errorf("script: %s: %w", d.Path, err)
	}
	return nil
}

func (d *Driver) run(phase string, t float64, engine *tengo.ImmutableMap) error {
	if err := d.compiled.Set("__phase", phase); err != nil {
		return err
	}
	if err := d.compiled.Set("__engine", engine); err != nil {
		return err
	}
	if err := d.compiled.Set("__time", t); err != nil {
		return err
	}
	return d.compiled.Run()
}

func (d *Driver) engine(c *component.AnimController) *tengo.ImmutableMap {
	values := map[string]tengo.Object{}
	log := logger.Or(d.Log).WithField("script", d.Path)

	values["set"] = &tengo.UserFunction{Name: "set", Value: func(args ...tengo.Object) (tengo.Object, error) {
		if len(args) != 2 {
			return nil, tengo.ErrWrongNumArguments
		}
		name := strings.TrimSpace(objectAsString(args[0]))
		v, ok := toValue(args[1])
		if name == "" || !ok {
			return tengo.FalseValue, nil
		}
		c.Set(name, v)
		return tengo.TrueValue, nil
	}}

	values["get"] = &tengo.UserFunction{Name: "get", Value: func(args ...tengo.Object) (tengo.Object, error) {
		if len(args) != 1 {
			return nil, tengo.ErrWrongNumArguments
		}
		name := objectAsString(args[0])
		if v, ok := c.Inputs[name]; ok {
			return fromValue(v), nil
		}
		if c.Instance != nil {
			if idx := c.Instance.Resource().Decl.InputIdx(name); idx >= 0 {
				return fromValue(c.Instance.Value(idx)), nil
			}
		}
		return tengo.UndefinedValue, nil
	}}

	values["set_set"] = &tengo.UserFunction{Name: "set_set", Value: func(args ...tengo.Object) (tengo.Object, error) {
		if len(args) != 1 {
			return nil, tengo.ErrWrongNumArguments
		}
		i, ok := tengo.ToInt(args[0])
		if !ok {
			return nil, tengo.ErrInvalidArgumentType{Name: "index", Expected: "int", Found: args[0].TypeName()}
		}
		c.DefaultSet = i
		return tengo.TrueValue, nil
	}}

	values["get_set"] = &tengo.UserFunction{Name: "get_set", Value: func(args ...tengo.Object) (tengo.Object, error) {
		return &tengo.Int{Value: int64(c.DefaultSet)}, nil
	}}

	values["state"] = &tengo.UserFunction{Name: "state", Value: func(args ...tengo.Object) (tengo.Object, error) {
		if c.Instance == nil {
			return &tengo.String{Value: ""}, nil
		}
		return &tengo.String{Value: strings.Join(c.Instance.ActivePath(), "/")}, nil
	}}

	values["log"] = &tengo.UserFunction{Name: "log", Value: func(args ...tengo.Object) (tengo.Object, error) {
		parts := make([]string, 0, len(args))
		for _, a := range args {
			parts = append(parts, objectAsString(a))
		}
		log.Info(strings.Join(parts, " "))
		return tengo.UndefinedValue, nil
	}}

	return &tengo.ImmutableMap{Value: values}
}

func toValue(obj tengo.Object) (anim.Value, bool) {
	switch v := obj.(type) {
	case *tengo.Float:
		return anim.FloatValue(float32(v.Value)), true
	case *tengo.Int:
		if v.Value < math.MinInt32 || v.Value > math.MaxInt32 {
			return anim.Value{}, false
		}
		return anim.IntValue(int32(v.Value)), true
	case *tengo.Bool:
		return anim.BoolValue(!v.IsFalsy()), true
	}
	return anim.Value{}, false
}

func fromValue(v anim.Value) tengo.Object {
	switch v.Type {
	case anim.TypeFloat:
		return &tengo.Float{Value: float64(v.F)}
	case anim.TypeInt:
		return &tengo.Int{Value: int64(v.I)}
	case anim.TypeBool:
		if v.B {
			return tengo.TrueValue
		}
		return tengo.FalseValue
	}
	return tengo.UndefinedValue
}

func objectAsString(obj tengo.Object) string {
	if obj == nil {
		return ""
	}
	switch v := obj.(type) {
	case *tengo.String:
		return v.Value
	default:
		return strings.Trim(v.String(), "\"")
	}
}
