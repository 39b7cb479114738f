package component

import (
	"github.com/milk9111/animgraph/anim"
	"github.com/milk9111/animgraph/anim/controller"
)

// AnimController attaches a controller resource to an entity. Resource is
// resolved from Path when nil; Instance is created on the first tick.
// DefaultSet is applied before every tick and reset to 0 when out of range.
type AnimController struct {
	Path       string
	DefaultSet int
	Resource   *controller.Resource
	Instance   *controller.Instance

	// Inputs are written into the instance before every tick. Unknown names
	// and mismatched types are ignored.
	Inputs map[string]anim.Value
}

// Set stores an input value for the next tick.
func (c *AnimController) Set(name string, v anim.Value) {
	if c.Inputs == nil {
		c.Inputs = make(map[string]anim.Value)
	}
	c.Inputs[name] = v
}

var AnimControllerComponent = NewComponent[AnimController]()

// SharedAnimController makes an entity reuse the controller output of
// Parent, an ecs.Entity holding an AnimController, instead of running its
// own instance.
type SharedAnimController struct {
	Parent uint64
}

var SharedAnimControllerComponent = NewComponent[SharedAnimController]()

// Pose is the latest sample list produced for an entity.
type Pose struct {
	Samples []controller.Sample
	State   string
	Held    bool
}

var PoseComponent = NewComponent[Pose]()

// AnimEvents collects the controller events of the last tick for gameplay
// systems that prefer per-entity queues over the world event queue.
type AnimEvents struct {
	Events []anim.Event
}

var AnimEventsComponent = NewComponent[AnimEvents]()
