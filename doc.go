/*
Package studio is the systems core of a content-creation studio: an orchestrator
that applies deferred, undoable transactions on a single goroutine, a branching
undo journal, and a CSP-style event engine that drives small asynchronous
workflows such as "open a file" without blocking the frame loop.

# Concept

Everything that mutates the scene is a domain.Transaction: an exec closure, an
undo closure and an optional affinity. Any goroutine may enqueue one; the
orchestrator applies them in order once per frame and records them in a
journal.Journal, coalescing consecutive edits with the same affinity.

Panels and tools are orchestrator Activities, grouped into Studios (workspace
presets). Switching studio activates the listed activities and, for exclusive
studios, deactivates everything else.

Asynchronous workflows are csp Modules: a handful of numbered processes, each a
run-to-completion behavior that may emit the next state, immediately or after a
delay. The engine carries events over a ports.Transport, in memory or over Redis.

# Usage

	transport := memory.NewTransport()
	s := studio.New(transport, studio.WithLogger(logging.New(slog.LevelInfo)))

	s.Orchestrator().RegisterActivity("Outliner", newOutliner)
	s.Orchestrator().RegisterStudio("Layout", func() orchestrator.Studio {
		return &orchestrator.BasicStudio{StudioName: "Layout", ActivityNames: []string{"Outliner"}}
	})
	s.ActivateStudio("Layout")

	open := workflow.NewOpenFile("open-stage", 200, dialog, loader)
	if err := s.Engine().RegisterModule(open.Module()); err != nil {
		log.Fatal(err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	_ = s.Run(ctx, time.Second/60)

# Threading

The orchestrator, its registries and the journal belong to the goroutine that
calls Tick or Run. Other goroutines use the concurrent-safe surface: enqueueing
transactions, requesting studio switches, emitting events, queueing commands
with Do and reading the last View.
*/
package studio
