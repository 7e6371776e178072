package multisum

// Close releases the engine's zeroboard memory. The engine cannot be used
// afterwards; in-flight queries holding a board keep it alive until they
// finish.
func (e *Engine) Close() error {
	if e == nil {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	e.boards = nil
	return nil
}
