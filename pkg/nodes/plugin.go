package nodes

import (
	"github.com/aretw0/taskgraph/pkg/domain"
	"github.com/aretw0/taskgraph/pkg/registry"
)

// Plugin registers the built-in node factories.
var Plugin = registry.PluginFunc(func(c *registry.Catalog) {
	c.AddNodeFactory(domain.ActionNodeFactory, NewActionFactory)
	c.AddNodeFactory(domain.SubtasksNodeFactory, NewSubtasksFactory)
})

func init() {
	registry.Register(Plugin)
}
