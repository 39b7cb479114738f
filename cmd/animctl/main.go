package main

import (
	"bytes"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/milk9111/animgraph/anim"
	"github.com/milk9111/animgraph/anim/condition"
	"github.com/milk9111/animgraph/anim/controller"
	"github.com/milk9111/animgraph/config"
	"github.com/milk9111/animgraph/logger"
	"github.com/milk9111/animgraph/prefabs"
)

const usage = `usage: animctl [-config file] <command> [flags]

commands:
  compile  -controller spec.yaml -expr "speed > 0.5"
  build    -controller spec.yaml -o out.act
  inspect  file.act
  sim      -controller spec.yaml [-script driver.tengo] [-seconds 5]
  watch    -controller spec.yaml [-script driver.tengo]
`

func main() {
	configPath := flag.String("config", "", "YAML config file")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	logger.Configure(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	if os.Getenv("LOG_LEVEL") != "" || os.Getenv("LOG_FORMAT") != "" {
		logger.Init()
	}
	prefabs.Root = cfg.ControllersDir

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	cmds := map[string]func(config.Config, []string) error{
		"compile": runCompile,
		"build":   runBuild,
		"inspect": runInspect,
		"sim":     runSim,
		"watch":   runWatch,
	}
	run, ok := cmds[args[0]]
	if !ok {
		fmt.Fprintf(os.Stderr, "animctl: unknown command %q\n", args[0])
		flag.Usage()
		os.Exit(2)
	}
	if err := run(cfg, args[1:]); err != nil {
		logger.Log.WithError(err).WithField("command", args[0]).Error("animctl: failed")
		os.Exit(1)
	}
}

func clipLibrary(cfg config.Config) (*prefabs.ClipLibrary, error) {
	return prefabs.LoadClipLibrary(cfg.ClipCatalogs...)
}

// runCompile prints the disassembly of one expression, or its error code.
func runCompile(cfg config.Config, args []string) error {
	fs := flag.NewFlagSet("compile", flag.ExitOnError)
	ctrl := fs.String("controller", "", "controller spec providing inputs and constants")
	expr := fs.String("expr", "", "condition expression")
	_ = fs.Parse(args)

	spec := &prefabs.ControllerSpec{}
	if *ctrl != "" {
		var err error
		if spec, err = prefabs.LoadControllerSpec(*ctrl); err != nil {
			return err
		}
	}
	code, err := prefabs.CompileExpr(spec, *expr)
	if err != nil {
		c := condition.CodeOf(err)
		fmt.Printf("%s: %s\n", c, c.Message())
		return err
	}
	fmt.Print(condition.Disassemble(code))
	return nil
}

func runBuild(cfg config.Config, args []string) error {
	fs := flag.NewFlagSet("build", flag.ExitOnError)
	ctrl := fs.String("controller", "", "controller spec")
	out := fs.String("o", "", "output file, defaults to the input name with .act")
	_ = fs.Parse(args)
	if *ctrl == "" {
		return fmt.Errorf("build: -controller is required")
	}

	clips, err := clipLibrary(cfg)
	if err != nil {
		return err
	}
	res, warnings, err := prefabs.BuildFile(*ctrl, clips)
	for _, w := range warnings {
		logger.Log.Warn(w.String())
	}
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := res.Serialize(&buf); err != nil {
		return err
	}
	path := *out
	if path == "" {
		path = strings.TrimSuffix(*ctrl, ".yaml") + ".act"
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return err
	}
	logger.Log.WithFields(logrus.Fields{"file": path, "bytes": buf.Len(), "warnings": len(warnings)}).Info("animctl: controller written")
	return nil
}

func runInspect(cfg config.Config, args []string) error {
	fs := flag.NewFlagSet("inspect", flag.ExitOnError)
	_ = fs.Parse(args)
	if fs.NArg() != 1 {
		return fmt.Errorf("inspect: expected one .act file")
	}
	path := fs.Arg(0)
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	version, err := controller.PeekVersion(data)
	if err != nil {
		return err
	}
	clips, err := clipLibrary(cfg)
	if err != nil {
		return err
	}
	res := controller.NewResource(path)
	if err := res.Load(data, clips); err != nil {
		return err
	}
	describe(os.Stdout, res, version)
	return nil
}

func describe(w io.Writer, res *controller.Resource, version controller.Version) {
	fmt.Fprintf(w, "%s: version %d (%s), %s\n", res.Path, version, version, res.State())
	decl := &res.Decl
	fmt.Fprintf(w, "inputs (%d bytes):\n", decl.Size())
	for i := 0; i < decl.InputsCount; i++ {
		in := decl.Inputs[i]
		fmt.Fprintf(w, "  %-24s %-6s @%d\n", in.Name, in.Type, in.Offset)
	}
	fmt.Fprintln(w, "constants:")
	for i := 0; i < decl.ConstantsCount; i++ {
		c := decl.Constants[i]
		fmt.Fprintf(w, "  %-24s %s\n", c.Name, c.Value)
	}
	fmt.Fprintf(w, "sets: %s\n", strings.Join(res.SetNames, ", "))
	for _, e := range res.Entries {
		_, bound := res.Sets.Animation(e.Set, e.Hash)
		fmt.Fprintf(w, "  [%d] %08x %s bound=%v\n", e.Set, e.Hash, e.Path, bound)
	}
	for _, m := range res.Masks {
		fmt.Fprintf(w, "mask %s: %v\n", m.Name, m.Bones())
	}
	fmt.Fprintf(w, "max root rotation speed: %g\n", res.MaxRootRotationSpeed)
	fmt.Fprintln(w, "graph:")
	describeNode(w, res, res.Graph.Root, 1)
}

func describeNode(w io.Writer, res *controller.Resource, n, depth int) {
	g := &res.Graph
	node := &g.Nodes[n]
	indent := strings.Repeat("  ", depth)
	fmt.Fprintf(w, "%s%s (%s)", indent, node.Name, node.Kind)
	switch node.Kind {
	case controller.KindSingle:
		fmt.Fprintf(w, " clip=%08x loop=%v speed=%g", node.Single.Clip, node.Single.Looped, node.Single.Speed)
	case controller.KindBlend:
		fmt.Fprintf(w, " input=%s children=%d mask=%d", res.Decl.Inputs[node.Blend.Input].Name, len(node.Blend.Children), node.Blend.Mask)
	}
	if len(node.OnEnter) > 0 || len(node.OnExit) > 0 {
		fmt.Fprintf(w, " enter=%v exit=%v", node.OnEnter, node.OnExit)
	}
	fmt.Fprintln(w)
	if node.Kind != controller.KindSubGraph {
		return
	}
	for _, c := range node.Sub.Children {
		describeNode(w, res, c, depth+1)
	}
	for _, ei := range node.Sub.Edges {
		e := &g.Edges[ei]
		status := "ok"
		if e.Condition.Err != condition.None {
			status = e.Condition.Err.String()
		}
		fmt.Fprintf(w, "%s  %s -> %s when %q blend=%g [%s]\n", indent, g.Nodes[e.From].Name, g.Nodes[e.To].Name, e.Condition.Expression, e.BlendDuration, status)
	}
}

// formatEvents renders a tick's events as "enter:grounded clip:step".
func formatEvents(events []anim.Event) string {
	parts := make([]string, 0, len(events))
	for _, ev := range events {
		parts = append(parts, string(ev.Kind)+":"+ev.Name)
	}
	return strings.Join(parts, " ")
}
