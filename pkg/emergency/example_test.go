package emergency_test

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jihwankim/pssakit/pkg/emergency"
)

// Example demonstrates wiring an emergency controller into a trial batch:
// kernel.Runner reports its batch/trial position via SetProgress, and a
// stop's callback receives that position alongside the stop reason.
func Example() {
	controller := emergency.New(emergency.Config{
		StopFile:             "/tmp/pssakit-emergency-stop-test",
		PollInterval:         1 * time.Second,
		EnableSignalHandlers: false, // Disable signal handling in example
	})

	// Clean up stop file before starting
	os.Remove(controller.GetStopFilePath())

	// Simulate kernel.Runner reporting progress through a batch of trials.
	controller.SetProgress(emergency.Progress{BatchID: "batch-1", Method: "pssacr", Trial: 2, Trials: 10})

	// Register cleanup callback
	controller.OnStop(func(ev emergency.StopEvent) {
		fmt.Printf("Emergency stop triggered: %s\n", ev.Reason)
		fmt.Printf("Stopped at trial %d/%d of batch %s\n", ev.Progress.Trial, ev.Progress.Trials, ev.Progress.BatchID)
		fmt.Println("Cleanup complete")
	})

	// Start monitoring
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	controller.Start(ctx)

	// Simulate work
	fmt.Println("Controller started, monitoring for emergency stop...")
	fmt.Println("Create stop file to trigger emergency stop:")
	fmt.Printf("  touch %s\n", controller.GetStopFilePath())

	// Wait for emergency stop or timeout
	select {
	case <-controller.StopChannel():
		fmt.Println("Emergency stop detected via channel")
	case <-time.After(3 * time.Second):
		fmt.Println("No emergency stop triggered (timeout)")
	}

	// Clean up stop file
	os.Remove(controller.GetStopFilePath())

	// Output:
	// Controller started, monitoring for emergency stop...
	// Create stop file to trigger emergency stop:
	//   touch /tmp/pssakit-emergency-stop-test
	// No emergency stop triggered (timeout)
}
