// Package workflow runs an ordered list of named tasks against one shared,
// mutable context.
//
// Tasks run strictly in list order. Execution stops at the first task that
// fails; tasks after it are never invoked. There is no rollback: the context
// reflects every mutation made up to and including the failing task.
//
// # Usage
//
//	tasks := []workflow.Task[*Job]{
//	    workflow.NewTask("create root", createRoot),
//	    workflow.NewTask("write env file", writeEnv),
//	}
//	exec := workflow.NewExecutor[*Job](logger)
//	if err := exec.Run(ctx, tasks, job); err != nil {
//	    var te *workflow.TaskError
//	    if errors.As(err, &te) {
//	        // te.Index, te.Name identify the failing task
//	    }
//	}
//
// ExecuteWorkflow is the boolean form for callers that only need to know
// whether every task succeeded.
package workflow
