package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/studio/internal/presentation/graph"
	"github.com/aretw0/studio/internal/presentation/tui"
	"github.com/aretw0/studio/pkg/adapters/dialog"
	"github.com/aretw0/studio/pkg/domain"
	"github.com/aretw0/studio/pkg/orchestrator"
	"github.com/aretw0/studio/pkg/workflow"
)

// DemoStagePath is the file picked by the demo's scripted dialog.
const DemoStagePath = "shots/seq010/layout.usda"

// DemoShot is the shot created by the demo session.
var DemoShot = workflow.Shot{Name: "sh010", Start: 1001, End: 1048}

// DemoDialog answers the demo's single open request after two polls.
func DemoDialog() *dialog.Scripted {
	return dialog.NewScripted(dialog.Ready(DemoStagePath, 2))
}

// scene is the toy document edited by the demo.
type scene struct {
	mu      sync.Mutex
	objects []string
}

func (s *scene) add(name string) domain.Transaction {
	return domain.NewTransaction("add "+name,
		func() {
			s.mu.Lock()
			s.objects = append(s.objects, name)
			s.mu.Unlock()
		},
		domain.WithUndo(func() {
			s.mu.Lock()
			for i, o := range s.objects {
				if o == name {
					s.objects = append(s.objects[:i], s.objects[i+1:]...)
					break
				}
			}
			s.mu.Unlock()
		}),
	)
}

func (s *scene) list() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.objects...)
}

// Demo plays a scripted editing session on a, then writes a markdown report
// through render. a should be built with DemoDialog.
func Demo(ctx context.Context, a *App, w io.Writer, render tui.RenderFunc) error {
	if err := a.Studio.Start(ctx); err != nil {
		return err
	}
	defer a.Studio.Stop()

	doc := &scene{}
	dt := a.Config.FrameInterval()
	tick := func() { a.Studio.Tick(dt) }
	tick()

	a.Studio.EnqueueTransaction(doc.add("cube"))
	for _, x := range []int{1, 2, 3} {
		a.Studio.EnqueueTransaction(domain.NewTransaction(
			fmt.Sprintf("move cube x=%d", x), func() {},
			domain.WithAffinity("/World/Cube", "xform"),
		))
	}
	a.Studio.EnqueueTransaction(doc.add("light"))
	tick()

	a.Studio.Undo()
	a.Studio.Do(func(o *orchestrator.Orchestrator) {
		if err := o.Fork(doc.add("camera")); err != nil {
			a.logger.Warn("fork rejected", "err", err)
		}
	})
	a.Studio.ActivateStudio("Animation")
	tick()

	if err := a.OpenStage.Start(ctx); err != nil {
		return fmt.Errorf("open stage: %w", err)
	}
	if err := a.settle(ctx, func() bool { return !a.OpenStage.Pending() }); err != nil {
		return fmt.Errorf("open stage: %w", err)
	}

	if err := a.Shots.Request(ctx, DemoShot); err != nil {
		return fmt.Errorf("create shot: %w", err)
	}
	if err := a.settle(ctx, func() bool { return len(a.Sequencer.Shots()) > 0 }); err != nil {
		return fmt.Errorf("create shot: %w", err)
	}

	if err := a.Studio.Save(ctx); err != nil {
		return err
	}

	out, err := render(a.Report(doc.list()))
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, out)
	return err
}

// settle ticks until cond holds, then ticks once more so transactions queued
// by the engine goroutine are applied.
func (a *App) settle(ctx context.Context, cond func() bool) error {
	dt := a.Config.FrameInterval()
	ticker := time.NewTicker(dt)
	defer ticker.Stop()
	for !cond() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			a.Studio.Tick(dt)
		}
	}
	a.Studio.Tick(dt)
	return nil
}

// Report renders the current View as markdown.
func (a *App) Report(objects []string) string {
	v := a.Studio.View()
	var sb strings.Builder

	fmt.Fprintf(&sb, "# Studio session\n\nStudio **%s** at frame %d.\n\n", v.Studio, v.Frame)

	sb.WriteString("## Activities\n\n| Activity | Active | Capabilities |\n|---|---|---|\n")
	for _, av := range v.Activities {
		active := "no"
		if av.Active {
			active = "yes"
		}
		fmt.Fprintf(&sb, "| %s | %s | %s |\n", av.Name, active, av.Capabilities)
	}

	sb.WriteString("\n## Scene\n\n")
	if stage := a.Stage.Current(); stage != "" {
		fmt.Fprintf(&sb, "Stage: `%s`\n\n", stage)
	}
	for _, o := range objects {
		fmt.Fprintf(&sb, "- %s\n", o)
	}
	for _, s := range a.Sequencer.Shots() {
		fmt.Fprintf(&sb, "- shot %s [%d-%d]\n", s.Name, s.Start, s.End)
	}

	sb.WriteString("\n## Journal\n\n")
	sb.WriteString(graph.Tree(v.Journal))
	sb.WriteString("\n```mermaid\n")
	sb.WriteString(graph.Mermaid(v.Journal))
	sb.WriteString("```\n")
	return sb.String()
}
