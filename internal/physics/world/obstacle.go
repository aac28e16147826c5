package world

import (
	"fmt"
	"slices"

	"github.com/go-gl/mathgl/mgl64"
)

// ObstacleKind selects the obstacle volume.
type ObstacleKind int

const (
	ObstacleBox ObstacleKind = iota
	ObstacleCapsule
)

// ObstacleHandle identifies an obstacle inside its context.
type ObstacleHandle uint32

// Obstacle is a volume that blocks controllers but is not simulated.
type Obstacle struct {
	Kind ObstacleKind
	Pose Pose
	// HalfExtents is used by box obstacles.
	HalfExtents mgl64.Vec3
	// Radius and HalfHeight are used by capsule obstacles.
	Radius     float64
	HalfHeight float64
	UserData   any

	handle ObstacleHandle
	ctx    *ObstacleContext
}

// Handle returns the obstacle handle.
func (o *Obstacle) Handle() ObstacleHandle { return o.handle }

func (o *Obstacle) geometry() Geometry {
	if o.Kind == ObstacleCapsule {
		return CapsuleGeometry{Radius: o.Radius, HalfHeight: o.HalfHeight}
	}
	return BoxGeometry{HalfExtents: o.HalfExtents}
}

func (o *Obstacle) validate() error {
	if !o.Pose.Valid() {
		return fmt.Errorf("%w: invalid obstacle pose", ErrActorCreationFailed)
	}
	switch o.Kind {
	case ObstacleBox:
		if !(o.HalfExtents[0] > 0 && o.HalfExtents[1] > 0 && o.HalfExtents[2] > 0) {
			return fmt.Errorf("%w: obstacle extents %v", ErrActorCreationFailed, o.HalfExtents)
		}
	case ObstacleCapsule:
		if !(o.Radius > 0) || !(o.HalfHeight >= 0) {
			return fmt.Errorf("%w: obstacle radius %v half height %v", ErrActorCreationFailed, o.Radius, o.HalfHeight)
		}
	default:
		return fmt.Errorf("%w: unknown obstacle kind %d", ErrActorCreationFailed, o.Kind)
	}
	return nil
}

// ObstacleContext is the set of obstacles seen by a manager's controllers.
type ObstacleContext struct {
	manager *ControllerManager
	list    []*Obstacle
	next    ObstacleHandle
}

// AddObstacle copies o into the context and returns its handle.
func (c *ObstacleContext) AddObstacle(o Obstacle) (ObstacleHandle, error) {
	if err := o.validate(); err != nil {
		return 0, err
	}
	c.next++
	o.handle = c.next
	o.ctx = c
	c.list = append(c.list, &o)
	return o.handle, nil
}

// AddBox adds a box obstacle.
func (c *ObstacleContext) AddBox(pose Pose, halfExtents mgl64.Vec3) (ObstacleHandle, error) {
	return c.AddObstacle(Obstacle{Kind: ObstacleBox, Pose: pose, HalfExtents: halfExtents})
}

// AddCapsule adds an upright capsule obstacle.
func (c *ObstacleContext) AddCapsule(pose Pose, radius, halfHeight float64) (ObstacleHandle, error) {
	return c.AddObstacle(Obstacle{Kind: ObstacleCapsule, Pose: pose, Radius: radius, HalfHeight: halfHeight})
}

// UpdateObstacle replaces the obstacle with handle h. Controllers riding
// it follow on their next move.
func (c *ObstacleContext) UpdateObstacle(h ObstacleHandle, o Obstacle) error {
	cur := c.Obstacle(h)
	if cur == nil {
		return fmt.Errorf("%w: unknown obstacle %d", ErrActorCreationFailed, h)
	}
	if err := o.validate(); err != nil {
		return err
	}
	o.handle, o.ctx = h, c
	*cur = o
	return nil
}

// RemoveObstacle removes the obstacle with handle h.
func (c *ObstacleContext) RemoveObstacle(h ObstacleHandle) bool {
	i := slices.IndexFunc(c.list, func(o *Obstacle) bool { return o.handle == h })
	if i < 0 {
		return false
	}
	c.list[i].ctx = nil
	c.list = slices.Delete(c.list, i, i+1)
	return true
}

// Obstacle returns the obstacle with handle h or nil.
func (c *ObstacleContext) Obstacle(h ObstacleHandle) *Obstacle {
	for _, o := range c.list {
		if o.handle == h {
			return o
		}
	}
	return nil
}

// Len returns the number of obstacles.
func (c *ObstacleContext) Len() int { return len(c.list) }
