package session

// attachBridge subscribes to the engine change notification for the document
// that was just opened, dropping the subscription of the previous one.
func (c *Controller) attachBridge() {
	if c.detachBridge != nil {
		c.detachBridge()
	}
	c.detachBridge = c.engine.Subscribe(c.refreshFromEngine)
}

// refreshFromEngine runs for every engine-side mutation, whatever caused it.
func (c *Controller) refreshFromEngine() {
	c.store.Update(c.mirrorEngine)
}

// mirrorEngine copies the engine-derived fields into s.
func (c *Controller) mirrorEngine(s *State) {
	s.DocumentOpen = c.engine.IsOpen()
	s.PageCount = c.engine.PageCount()
	if s.DocumentOpen && s.PageCount > 0 {
		s.DisplayedPage = c.engine.CurrentPage() + 1
	} else {
		s.DisplayedPage = 0
	}
	s.ZoomMode = c.engine.ZoomMode()
	s.DisplayMode = c.engine.DisplayMode()
	s.Rotation = c.engine.Rotation()
	s.RenderFlags = c.engine.RenderFlags()
}

// syncDetached refreshes the mirrors when no document (and so no bridge) is
// attached; view settings still change without one.
func (c *Controller) syncDetached() error {
	if c.detachBridge == nil {
		c.refreshFromEngine()
	}
	return nil
}
