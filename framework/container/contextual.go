package container

// ContextualBuilder implements the fluent contextual binding API.
//
//	c.When("orders.resource").Needs("clock").Give(func(c *container.Container) any {
//	    return fixedClock{}
//	})
type ContextualBuilder struct {
	container *Container
	concrete  string
	needs     string
}

// Needs specifies which abstract the concrete component depends on.
func (b *ContextualBuilder) Needs(abstract string) *ContextualBuilder {
	b.needs = abstract
	return b
}

// Give provides the factory used when the concrete component resolves the
// abstract named by Needs.
func (b *ContextualBuilder) Give(factory Factory) {
	b.container.mu.Lock()
	defer b.container.mu.Unlock()

	b.container.markConfigured()
	if _, ok := b.container.contextual[b.concrete]; !ok {
		b.container.contextual[b.concrete] = make(map[string]Factory)
	}
	b.container.contextual[b.concrete][b.needs] = factory
}

// GiveValue is Give for a pre-built value.
//
//	c.When("orders.resource").Needs("page.size").GiveValue(50)
func (b *ContextualBuilder) GiveValue(value any) {
	b.Give(func(_ *Container) any { return value })
}
