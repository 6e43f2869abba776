// Package frontend stands in for the C-dialect front-end the spec treats as
// an opaque "compile source -> module + kernel metadata" collaborator (spec
// §1, §6). A real deployment swaps Registry's Compiler for one backed by a
// Clang/LLVM front-end; this reference implementation extracts just the two
// things the execution core needs from a kernel compile unit — its argument
// address-space list (the `opencl.kernels` named-metadata operand 1, per
// spec §6) and its declared call graph (for the recursion/call-graph-forest
// check, spec §4.F failure semantics) — from a minimal OpenCL-C-shaped
// kernel signature grammar, and resolves the executable body from a
// pre-registered closure rather than generating code.
package frontend

import (
	"regexp"
	"strings"

	"github.com/pkg/errors"
)

// AddressSpace classifies one kernel argument, mirroring
// OpenCLMetadataHandler's per-argument address-space metadata.
type AddressSpace int

const (
	Private AddressSpace = iota
	Global
	Local
	Constant
)

func (a AddressSpace) String() string {
	switch a {
	case Global:
		return "global"
	case Local:
		return "local"
	case Constant:
		return "constant"
	default:
		return "private"
	}
}

// ArgInfo describes one kernel parameter's name and address space.
type ArgInfo struct {
	Name         string
	AddressSpace AddressSpace
}

// KernelMeta is what Compile extracts for one kernel found in a compile
// unit.
type KernelMeta struct {
	Name string
	Args []ArgInfo
	// Calls lists the names of other registered kernels this kernel's body
	// invokes, declared by whoever calls Register — the stand-in for a real
	// front-end's call-graph extraction, used only to drive the
	// call-graph-forest (recursion) check.
	Calls []string
}

// Module is the compiled result of one source string: its kernel metadata
// table. There is no bitcode in this reference implementation — the
// executable behavior lives in the Registry's registered closures, fetched
// by jit.Engine.AddModule.
type Module struct {
	Source  string
	Kernels map[string]KernelMeta
}

// Compiler is the opaque "compile source -> Module" collaborator (spec §1).
type Compiler interface {
	Compile(source string, options []string) (*Module, error)
}

var kernelSignature = regexp.MustCompile(`(?m)^\s*kernel\s+void\s+(\w+)\s*\(([^)]*)\)`)

// Compile parses every `kernel void name(args...)` signature out of source,
// classifies each argument's address space from its qualifier keyword
// (global/local/constant, absent = private/by-value), cross-references the
// kernel against r's registered bodies (when the registered KernelMeta
// declares Args, that list replaces the parsed one), and checks the declared call
// graph is a forest (no cycles, spec §4.F recursion rejection). Build
// options are recorded but otherwise unused — this reference front-end has
// no optimization levels to gate.
func (r *Registry) Compile(source string, options []string) (*Module, error) {
	matches := kernelSignature.FindAllStringSubmatch(source, -1)
	if len(matches) == 0 {
		return nil, errors.New("no kernel signatures found in source")
	}

	mod := &Module{Source: source, Kernels: make(map[string]KernelMeta)}

	for _, m := range matches {
		name := m[1]
		entry, ok := r.lookup(name)
		if !ok {
			return nil, errors.Errorf("kernel %q has no registered body", name)
		}

		meta := KernelMeta{Name: name, Calls: entry.meta.Calls}
		for _, rawArg := range splitArgs(m[2]) {
			meta.Args = append(meta.Args, parseArg(rawArg))
		}
		if len(entry.meta.Args) > 0 {
			meta.Args = entry.meta.Args
		}
		mod.Kernels[name] = meta
	}

	if err := checkCallGraphIsForest(mod.Kernels); err != nil {
		return nil, err
	}

	return mod, nil
}

func splitArgs(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseArg(raw string) ArgInfo {
	fields := strings.Fields(raw)
	space := Private
	for _, f := range fields {
		switch f {
		case "global", "__global":
			space = Global
		case "local", "__local":
			space = Local
		case "constant", "__constant":
			space = Constant
		}
	}
	name := fields[len(fields)-1]
	name = strings.TrimPrefix(name, "*")
	return ArgInfo{Name: name, AddressSpace: space}
}

// checkCallGraphIsForest walks each kernel's declared Calls edges and fails
// if any walk revisits a node already on the current path — the reference
// stand-in for the aggressive-inliner's reachable-call-graph-is-a-forest
// invariant (spec §4.F).
func checkCallGraphIsForest(kernels map[string]KernelMeta) error {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int)

	var visit func(name string, path []string) error
	visit = func(name string, path []string) error {
		switch color[name] {
		case gray:
			return errors.Errorf("recursive call graph detected: %s -> %s", strings.Join(path, " -> "), name)
		case black:
			return nil
		}
		color[name] = gray
		meta, ok := kernels[name]
		if ok {
			for _, callee := range meta.Calls {
				if err := visit(callee, append(path, name)); err != nil {
					return err
				}
			}
		}
		color[name] = black
		return nil
	}

	for name := range kernels {
		if err := visit(name, nil); err != nil {
			return err
		}
	}
	return nil
}
