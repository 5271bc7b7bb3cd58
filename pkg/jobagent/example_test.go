package jobagent_test

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/bft-labs/jobagent/pkg/jobagent"
)

// ExampleNew demonstrates how to embed the agent in your application.
func ExampleNew() {
	agent, err := jobagent.New(jobagent.Config{
		ControllerURL: "https://controller.example.com",
		AuthKey:       "your-api-key",
		RunDir:        "/var/lib/jobagent/runs",
		Cleanup:       jobagent.CleanupAll,
	})
	if err != nil {
		fmt.Printf("failed to create agent: %v\n", err)
		return
	}

	fmt.Println(agent.Config().ArchiveDir)
	// Output: /var/lib/jobagent/runs/archives
}

// ExampleAgent_Run runs a request file until it finishes or the process is
// interrupted.
func ExampleAgent_Run() {
	agent, err := jobagent.New(jobagent.Config{RunDir: os.TempDir()})
	if err != nil {
		fmt.Printf("failed to create agent: %v\n", err)
		return
	}

	req, err := jobagent.LoadRequest("job.yaml")
	if err != nil {
		fmt.Printf("failed to load request: %v\n", err)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	status := agent.Run(ctx, req)
	fmt.Printf("job %s finished: %s (exit %d)\n", status.JobID, status.Reason, status.ExitCode)
}

// Example_withEventHandler demonstrates how to receive execution events.
func Example_withEventHandler() {
	agent, err := jobagent.New(jobagent.Config{RunDir: os.TempDir()},
		jobagent.WithEventHandler(&printingHandler{}),
	)
	if err != nil {
		fmt.Printf("failed to create agent: %v\n", err)
		return
	}

	_ = agent // Run requests...
}

// printingHandler implements jobagent.EventHandler.
type printingHandler struct {
	jobagent.BaseEventHandler // Embed for no-op defaults
}

func (h *printingHandler) OnStateChange(event jobagent.StateChangeEvent) {
	fmt.Printf("job %s: %s -> %s\n", event.JobID, event.Previous, event.Current)
}
