// Package workflow provides the CSP modules used by the studio: the single-flight
// file-open state machine and the shot-creation state machine.
//
// Each workflow owns a csp.Module whose processes are numbered from a caller
// supplied base id. Register the module on an engine before starting the workflow:
//
//	open := workflow.NewOpenFile("open-stage", 200, dialog, loader)
//	if err := engine.RegisterModule(open.Module()); err != nil {
//		return err
//	}
//	_ = open.Start(ctx)
package workflow
