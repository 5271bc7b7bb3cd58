package statemachine

// cleanupStack holds pending cleanup actions in registration order.
// It is owned by one Run and only touched from the engine goroutine.
type cleanupStack struct {
	actions []CleanupAction
}

func (c *cleanupStack) Register(action CleanupAction) {
	c.actions = append(c.actions, action)
}

// take removes the most recent pending action for teardown and reports
// whether one existed.
func (c *cleanupStack) take(teardown State) (CleanupAction, bool) {
	for i := len(c.actions) - 1; i >= 0; i-- {
		if c.actions[i].Teardown == teardown {
			a := c.actions[i]
			c.actions = append(c.actions[:i], c.actions[i+1:]...)
			return a, true
		}
	}
	return CleanupAction{}, false
}

// drain removes every pending action and returns them newest first.
func (c *cleanupStack) drain() []CleanupAction {
	out := make([]CleanupAction, 0, len(c.actions))
	for i := len(c.actions) - 1; i >= 0; i-- {
		out = append(out, c.actions[i])
	}
	c.actions = nil
	return out
}

// discardRegistry ignores registrations made by teardown stages.
type discardRegistry struct{}

func (discardRegistry) Register(CleanupAction) {}
