// Package program implements the Program object of spec §3: the original
// kernel source plus one BuildInformation entry per device it has been
// built for.
package program

import (
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/opencrun-go/opencrun/frontend"
	"github.com/opencrun-go/opencrun/refcount"
)

// ContextView is the narrow context surface a Program needs: diagnostics.
// Kept as an interface, like memobj.ContextView, so program stays free of
// an import of the context package (context would otherwise need to import
// program right back to let callers build one from a context, a cycle this
// avoids by having callers — the cl facade — wire the two together
// instead).
type ContextView interface {
	ReportDiagnostic(msg string)
}

// DeviceBuildTarget is the narrow device surface Program.Build needs: the
// opaque per-device compile step. device/cpu.Device satisfies this
// structurally, so program never imports device/cpu (device/cpu already
// depends on command, which depends on kernel, which depends on program —
// program importing device/cpu back would close a cycle).
type DeviceBuildTarget interface {
	Name() string
	BuildProgram(source string, options []string) (*frontend.Module, error)
}

// Status is a per-device build's progress (spec §3).
type Status int

const (
	NotBuilt Status = iota
	InProgress
	Success
	Failure
)

// BuildInfo is one device's build record.
type BuildInfo struct {
	Status  Status
	Log     string
	Options []string
	Module  *frontend.Module
}

// Program holds the original source and one BuildInfo per device it has
// been built for (spec §3). Invariants enforced here: no new build may
// start while another is in progress on the same device, and no program
// may be rebuilt while it has attached kernels.
type Program struct {
	refcount.Ref

	ctx    ContextView
	source string

	mu              sync.Mutex
	builds          map[DeviceBuildTarget]*BuildInfo
	attachedKernels map[string]int
}

// New creates an unbuilt Program over source, owned by ctx.
func New(ctx ContextView, source string) *Program {
	return &Program{
		Ref:             refcount.NewRef(),
		ctx:             ctx,
		source:          source,
		builds:          make(map[DeviceBuildTarget]*BuildInfo),
		attachedKernels: make(map[string]int),
	}
}

// Context returns the owning context.
func (p *Program) Context() ContextView { return p.ctx }

// Source returns the original kernel source text.
func (p *Program) Source() string { return p.source }

// Build compiles the program for every device in devices with the given
// options string, fanning the per-device compile steps out concurrently via
// errgroup (spec §4.F: nothing about one device's build output depends on
// another's). It fails fast if any target already has a build in progress
// or if the program has attached kernels (spec §3 invariant), and reports
// the first device's (in devices order, not arrival order, so the result is
// deterministic regardless of which compile finishes first) failure as a
// BUILD_PROGRAM_FAILURE-wrapped error while still recording every device's
// individual BuildInfo (spec §7).
func (p *Program) Build(devices []DeviceBuildTarget, options []string) error {
	p.mu.Lock()
	if len(p.attachedKernels) > 0 {
		p.mu.Unlock()
		return errors.New("cannot rebuild a program with attached kernels")
	}
	for _, d := range devices {
		if info, ok := p.builds[d]; ok && info.Status == InProgress {
			p.mu.Unlock()
			return errors.Errorf("build already in progress for device %q", d.Name())
		}
		p.builds[d] = &BuildInfo{Status: InProgress, Options: options}
	}
	p.mu.Unlock()

	errs := make([]error, len(devices))
	var g errgroup.Group
	for i, d := range devices {
		i, d := i, d
		g.Go(func() error {
			mod, err := d.BuildProgram(p.source, options)

			p.mu.Lock()
			info := p.builds[d]
			if err != nil {
				info.Status = Failure
				info.Log = err.Error()
				errs[i] = errors.Wrapf(err, "device %q", d.Name())
			} else {
				info.Status = Success
				info.Module = mod
			}
			p.mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	var firstErr error
	for _, err := range errs {
		if err != nil {
			firstErr = err
			break
		}
	}

	if firstErr != nil {
		if p.ctx != nil {
			p.ctx.ReportDiagnostic(firstErr.Error())
		}
		return errors.Wrap(firstErr, "BUILD_PROGRAM_FAILURE")
	}
	return nil
}

// IsBuiltFor reports whether d has a successful build.
func (p *Program) IsBuiltFor(d DeviceBuildTarget) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	info, ok := p.builds[d]
	return ok && info.Status == Success
}

// BuildInfoFor returns a copy of d's build record.
func (p *Program) BuildInfoFor(d DeviceBuildTarget) (BuildInfo, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	info, ok := p.builds[d]
	if !ok {
		return BuildInfo{}, false
	}
	return *info, true
}

// ArgInfo returns the argument metadata for the named kernel, taken from
// the first successful build that defines it — every device's compiled
// function for a kernel must share the same signature (spec §3 Kernel
// invariant), so any one build's metadata is authoritative.
func (p *Program) ArgInfo(name string) ([]frontend.ArgInfo, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, info := range p.builds {
		if info.Status != Success || info.Module == nil {
			continue
		}
		if km, ok := info.Module.Kernels[name]; ok {
			return km.Args, nil
		}
	}
	return nil, errors.Errorf("kernel %q not found in any successful build of this program", name)
}

// AttachKernel records that a Kernel named name now exists against this
// program — the weak attached-kernels set of spec §3, guarding the
// no-rebuild-while-attached invariant. Reference counted per name since a
// kernel can be cloned via clCloneKernel-equivalent flows in callers that
// keep multiple Kernel handles over one name.
func (p *Program) AttachKernel(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.attachedKernels[name]++
}

// DetachKernel reverses AttachKernel, called when a Kernel's reference
// count reaches zero.
func (p *Program) DetachKernel(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.attachedKernels[name]--
	if p.attachedKernels[name] <= 0 {
		delete(p.attachedKernels, name)
	}
}
