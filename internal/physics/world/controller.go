package world

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"

	"github.com/Faultbox/physics-samples/internal/logger"
)

// CollisionFlags report which sides of a controller touched something
// during a move.
type CollisionFlags uint8

const (
	CollisionSides CollisionFlags = 1 << iota
	CollisionUp
	CollisionDown
)

func (f CollisionFlags) String() string {
	var parts []string
	if f&CollisionDown != 0 {
		parts = append(parts, "down")
	}
	if f&CollisionSides != 0 {
		parts = append(parts, "sides")
	}
	if f&CollisionUp != 0 {
		parts = append(parts, "up")
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "|")
}

// BehaviorFlags describe how a controller reacts to what it touches.
type BehaviorFlags uint8

const (
	// BehaviorCanRideOnObject carries the controller along with the
	// object it stands on.
	BehaviorCanRideOnObject BehaviorFlags = 1 << iota
	// BehaviorSlide lets the controller slide along steep contacts instead
	// of stopping.
	BehaviorSlide
	// BehaviorUserDefinedRide disables automatic riding; the caller moves
	// the controller itself.
	BehaviorUserDefinedRide
)

// BehaviorClassifier answers behavior queries for a controller. Methods are
// called synchronously from Move and must not modify the scene.
type BehaviorClassifier interface {
	ShapeBehavior(shape *Shape, actor *Actor) BehaviorFlags
	ControllerBehavior(other *Controller) BehaviorFlags
	ObstacleBehavior(obstacle *Obstacle) BehaviorFlags
}

// ControllerFilters restrict what blocks a move.
type ControllerFilters struct {
	// Filter, when set, reports whether a shape blocks the controller.
	Filter func(*Shape) bool
	// IgnoreControllers lets the controller pass through other controllers.
	IgnoreControllers bool
}

// ControllerDescBase holds the settings shared by all controller shapes.
type ControllerDescBase struct {
	Position    mgl64.Vec3
	UpDirection mgl64.Vec3
	Material    *Material
	// Density sets the mass of the kinematic proxy actor.
	Density float64
	// ContactOffset is the skin kept between the controller and obstacles.
	ContactOffset float64
	// ScaleCoeff shrinks the proxy actor relative to the controller volume.
	ScaleCoeff float64
	// SlopeLimit is the cosine of the steepest walkable slope.
	SlopeLimit float64
	Behavior   BehaviorClassifier
	UserData   any
}

// DefaultControllerDescBase returns an upright controller at the origin.
func DefaultControllerDescBase() ControllerDescBase {
	return ControllerDescBase{
		UpDirection:   mgl64.Vec3{0, 1, 0},
		Density:       10,
		ContactOffset: 0.1,
		ScaleCoeff:    0.8,
		SlopeLimit:    0.707,
	}
}

func (d *ControllerDescBase) validate() error {
	switch {
	case d.UpDirection.Len() < 1e-9:
		return fmt.Errorf("%w: zero up direction", ErrActorCreationFailed)
	case !(d.Density > 0):
		return fmt.Errorf("%w: controller density %v", ErrActorCreationFailed, d.Density)
	case !(d.ContactOffset > 0):
		return fmt.Errorf("%w: controller contact offset %v", ErrActorCreationFailed, d.ContactOffset)
	case !(d.ScaleCoeff > 0 && d.ScaleCoeff < 1):
		return fmt.Errorf("%w: controller scale coefficient %v", ErrActorCreationFailed, d.ScaleCoeff)
	case !(d.SlopeLimit >= 0 && d.SlopeLimit <= 1):
		return fmt.Errorf("%w: controller slope limit %v", ErrActorCreationFailed, d.SlopeLimit)
	}
	return nil
}

// ControllerDesc is implemented by BoxControllerDesc and CapsuleControllerDesc.
type ControllerDesc interface {
	descBase() *ControllerDescBase
	geometry() (Geometry, error)
}

// BoxControllerDesc describes an axis aligned box controller.
type BoxControllerDesc struct {
	ControllerDescBase
	HalfHeight        float64
	HalfSideExtent    float64
	HalfForwardExtent float64
}

func (d *BoxControllerDesc) descBase() *ControllerDescBase { return &d.ControllerDescBase }

func (d *BoxControllerDesc) geometry() (Geometry, error) {
	if !(d.HalfHeight > 0 && d.HalfSideExtent > 0 && d.HalfForwardExtent > 0) {
		return nil, fmt.Errorf("%w: box controller extents %v %v %v", ErrActorCreationFailed,
			d.HalfSideExtent, d.HalfHeight, d.HalfForwardExtent)
	}
	return BoxGeometry{HalfExtents: mgl64.Vec3{d.HalfSideExtent, d.HalfHeight, d.HalfForwardExtent}}, nil
}

// CapsuleControllerDesc describes an upright capsule controller. Height is
// the length of the cylindrical section.
type CapsuleControllerDesc struct {
	ControllerDescBase
	Radius float64
	Height float64
}

func (d *CapsuleControllerDesc) descBase() *ControllerDescBase { return &d.ControllerDescBase }

func (d *CapsuleControllerDesc) geometry() (Geometry, error) {
	if !(d.Radius > 0) || !(d.Height >= 0) {
		return nil, fmt.Errorf("%w: capsule controller radius %v height %v", ErrActorCreationFailed, d.Radius, d.Height)
	}
	return CapsuleGeometry{Radius: d.Radius, HalfHeight: d.Height / 2}, nil
}

// ControllerManager owns the controllers and obstacles of one scene.
type ControllerManager struct {
	scene       *Scene
	controllers []*Controller
	obstacles   *ObstacleContext
}

// CreateControllerManager creates a controller manager for scene.
func CreateControllerManager(scene *Scene) *ControllerManager {
	m := &ControllerManager{scene: scene}
	m.obstacles = &ObstacleContext{manager: m}
	scene.controllers = append(scene.controllers, m)
	return m
}

// ObstacleContext returns the manager's obstacle set.
func (m *ControllerManager) ObstacleContext() *ObstacleContext { return m.obstacles }

// Controllers returns the live controllers.
func (m *ControllerManager) Controllers() []*Controller { return m.controllers }

// Release releases every controller and detaches the manager.
func (m *ControllerManager) Release() {
	for _, c := range slices.Clone(m.controllers) {
		c.Release()
	}
	if m.scene != nil {
		m.scene.controllers = slices.DeleteFunc(m.scene.controllers, func(x *ControllerManager) bool { return x == m })
		m.scene = nil
	}
}

// Controller is a swept character volume with a kinematic proxy actor.
type Controller struct {
	UserData any

	manager *ControllerManager
	desc    ControllerDescBase
	geom    Geometry
	samples []mgl64.Vec3
	up      mgl64.Vec3
	orient  mgl64.Quat
	pos     mgl64.Vec3
	proxy   *Actor
	flags   CollisionFlags
	ground  *groundContact
}

type groundContact struct {
	actor    *Actor
	obstacle *Obstacle
	local    mgl64.Vec3
}

// CreateController creates a controller and its kinematic proxy actor.
func (m *ControllerManager) CreateController(desc ControllerDesc) (*Controller, error) {
	if m.scene == nil {
		return nil, fmt.Errorf("%w: controller manager released", ErrActorCreationFailed)
	}
	base := *desc.descBase()
	if err := base.validate(); err != nil {
		return nil, err
	}
	geom, err := desc.geometry()
	if err != nil {
		return nil, err
	}

	up := base.UpDirection.Normalize()
	c := &Controller{
		UserData: base.UserData,
		manager:  m,
		desc:     base,
		geom:     geom,
		samples:  geom.samples(),
		up:       up,
		orient:   rotationBetween(mgl64.Vec3{0, 1, 0}, up),
		pos:      base.Position,
	}

	proxy, err := m.scene.physics.CreateRigidDynamic(c.pose())
	if err != nil {
		return nil, err
	}
	proxy.Name = "controller-proxy"
	proxy.controller = c
	if err := proxy.SetKinematic(true); err != nil {
		return nil, err
	}
	shape, err := proxy.AttachShape(scaleGeometry(geom, base.ScaleCoeff), base.Material)
	if err != nil {
		return nil, err
	}
	if err := shape.SetContactOffset(base.ContactOffset); err != nil {
		return nil, err
	}
	if err := proxy.UpdateMassAndInertia(base.Density); err != nil {
		return nil, err
	}
	if err := m.scene.AddActor(proxy); err != nil {
		return nil, err
	}
	c.proxy = proxy
	m.controllers = append(m.controllers, c)

	m.scene.log.Debug("controller created",
		zap.Stringer("geometry", geom.Type()),
		logger.Vec3d("position", c.pos),
		zap.Float64("scale_coeff", base.ScaleCoeff))
	return c, nil
}

func scaleGeometry(g Geometry, k float64) Geometry {
	switch v := g.(type) {
	case BoxGeometry:
		return BoxGeometry{HalfExtents: v.HalfExtents.Mul(k)}
	case CapsuleGeometry:
		return CapsuleGeometry{Radius: v.Radius * k, HalfHeight: v.HalfHeight * k}
	}
	return g
}

func (c *Controller) pose() Pose {
	return Pose{P: c.pos, Q: c.orient}
}

// Position returns the center of the controller volume.
func (c *Controller) Position() mgl64.Vec3 { return c.pos }

// FootPosition returns the bottom of the controller volume including the
// contact offset.
func (c *Controller) FootPosition() mgl64.Vec3 {
	_, hi := c.geom.bounds()
	return c.pos.Sub(c.up.Mul(hi[1] + c.desc.ContactOffset))
}

// SetPosition teleports the controller without collision checks.
func (c *Controller) SetPosition(p mgl64.Vec3) {
	c.pos = p
	c.ground = nil
	c.syncProxy()
}

// Actor returns the kinematic proxy actor.
func (c *Controller) Actor() *Actor { return c.proxy }

// Geometry returns the controller volume.
func (c *Controller) Geometry() Geometry { return c.geom }

// ContactOffset returns the skin width.
func (c *Controller) ContactOffset() float64 { return c.desc.ContactOffset }

// CollisionFlags returns the flags of the last move.
func (c *Controller) CollisionFlags() CollisionFlags { return c.flags }

// Release removes the controller and its proxy actor.
func (c *Controller) Release() {
	if c.manager == nil {
		return
	}
	c.manager.controllers = slices.DeleteFunc(c.manager.controllers, func(x *Controller) bool { return x == c })
	c.proxy.Release()
	c.manager = nil
}

func (c *Controller) syncProxy() {
	if c.proxy == nil || c.proxy.released {
		return
	}
	_ = c.proxy.SetKinematicTarget(c.pose())
}

// blocker is anything a controller can collide with during a move.
type blocker struct {
	geom    Geometry
	pose    Pose
	samples []mgl64.Vec3
	shape   *Shape
	ctrl    *Controller
	obst    *Obstacle
}

const (
	maxMoveIterations = 8
	maxSweepSteps     = 64
	touchEpsilon      = 1e-5
	grazeEpsilon      = 1e-6
)

// Move sweeps the controller by disp, sliding along what it hits. Moves
// shorter than minDist are ignored. The proxy actor follows on the next
// simulation step.
func (c *Controller) Move(disp mgl64.Vec3, minDist, dt float64, filters *ControllerFilters) CollisionFlags {
	if c.manager == nil || c.manager.scene == nil {
		return 0
	}
	disp = disp.Add(c.rideDisplacement())
	skin := c.desc.ContactOffset
	blockers := c.gather(disp, filters)

	// Recover from an initial overlap before sweeping.
	if gap, n, k := c.gapAt(c.pos, mgl64.Vec3{}, blockers, skin); k >= 0 && gap < 0 {
		c.pos = c.pos.Add(n.Mul(-gap))
	}

	var flags CollisionFlags
	var ground *blocker
	remaining := disp
	for iter := 0; iter < maxMoveIterations; iter++ {
		length := remaining.Len()
		if length < minDist || length < 1e-12 {
			break
		}
		dir := remaining.Mul(1 / length)
		travel, n, k := c.sweep(dir, length, blockers, skin)
		c.pos = c.pos.Add(dir.Mul(travel))
		if k < 0 {
			break
		}

		b := &blockers[k]
		behavior := c.behavior(b)
		remaining = remaining.Mul(1 - travel/length)
		switch dot := n.Dot(c.up); {
		case dot >= c.desc.SlopeLimit:
			flags |= CollisionDown
			ground = b
		case dot <= -c.desc.SlopeLimit:
			flags |= CollisionUp
		default:
			flags |= CollisionSides
			if behavior&BehaviorSlide == 0 {
				remaining = mgl64.Vec3{}
			}
		}
		if into := remaining.Dot(n); into < 0 {
			remaining = remaining.Sub(n.Mul(into))
		}
	}

	c.updateGround(ground)
	c.flags = flags
	c.syncProxy()
	return flags
}

func (c *Controller) behavior(b *blocker) BehaviorFlags {
	cls := c.desc.Behavior
	if cls == nil {
		return BehaviorSlide
	}
	switch {
	case b.shape != nil:
		return cls.ShapeBehavior(b.shape, b.shape.actor)
	case b.ctrl != nil:
		return cls.ControllerBehavior(b.ctrl)
	case b.obst != nil:
		return cls.ObstacleBehavior(b.obst)
	}
	return 0
}

func (c *Controller) updateGround(b *blocker) {
	c.ground = nil
	if b == nil || c.behavior(b)&BehaviorUserDefinedRide != 0 || c.behavior(b)&BehaviorCanRideOnObject == 0 {
		return
	}
	switch {
	case b.shape != nil && b.shape.actor.typ == ActorDynamic:
		a := b.shape.actor
		c.ground = &groundContact{actor: a, local: a.pose.TransformInv(c.pos)}
	case b.obst != nil:
		c.ground = &groundContact{obstacle: b.obst, local: b.obst.Pose.TransformInv(c.pos)}
	}
}

// rideDisplacement returns how far the supporting object moved the
// controller's anchor since the last move.
func (c *Controller) rideDisplacement() mgl64.Vec3 {
	g := c.ground
	switch {
	case g == nil:
		return mgl64.Vec3{}
	case g.actor != nil && !g.actor.released:
		return g.actor.pose.Transform(g.local).Sub(c.pos)
	case g.obstacle != nil && g.obstacle.ctx != nil:
		return g.obstacle.Pose.Transform(g.local).Sub(c.pos)
	}
	return mgl64.Vec3{}
}

// gather collects everything whose bounds meet the swept volume.
func (c *Controller) gather(disp mgl64.Vec3, filters *ControllerFilters) []blocker {
	lo, hi := c.geom.bounds()
	start, end := c.pose(), Pose{P: c.pos.Add(disp), Q: c.orient}
	reach := 0.0
	for a := 0; a < 3; a++ {
		reach = math.Max(reach, math.Max(math.Abs(lo[a]), math.Abs(hi[a])))
	}
	margin := reach*math.Sqrt(3) + 2*c.desc.ContactOffset
	var slo, shi mgl64.Vec3
	for a := 0; a < 3; a++ {
		slo[a] = math.Min(start.P[a], end.P[a]) - margin
		shi[a] = math.Max(start.P[a], end.P[a]) + margin
	}
	overlaps := func(lo, hi mgl64.Vec3) bool {
		return lo[0] <= shi[0] && hi[0] >= slo[0] && lo[1] <= shi[1] && hi[1] >= slo[1] && lo[2] <= shi[2] && hi[2] >= slo[2]
	}

	var out []blocker
	scene := c.manager.scene
	for _, a := range scene.actors {
		if a.controller != nil {
			continue
		}
		for _, sh := range a.shapes {
			if sh.flags&ShapeSimulation == 0 {
				continue
			}
			if filters != nil && filters.Filter != nil && !filters.Filter(sh) {
				continue
			}
			if blo, bhi := sh.worldBounds(); !overlaps(blo, bhi) {
				continue
			}
			out = append(out, blocker{geom: sh.geom, pose: sh.WorldPose(), samples: sh.samples, shape: sh})
		}
	}
	if filters == nil || !filters.IgnoreControllers {
		for _, m := range scene.controllers {
			for _, other := range m.controllers {
				if other == c {
					continue
				}
				out = append(out, blocker{geom: other.geom, pose: other.pose(), samples: other.samples, ctrl: other})
			}
		}
	}
	for _, m := range scene.controllers {
		for _, o := range m.obstacles.list {
			g := o.geometry()
			out = append(out, blocker{geom: g, pose: o.Pose, samples: g.samples(), obst: o})
		}
	}
	return out
}

// gapAt returns the smallest gap between the controller at pos and any
// blocker, less the skin. With a non-zero dir, contacts that are already
// touching but not approaching along dir are skipped so the controller can
// slide along them. k is -1 when nothing is near.
func (c *Controller) gapAt(pos, dir mgl64.Vec3, blockers []blocker, skin float64) (gap float64, n mgl64.Vec3, k int) {
	best := math.Inf(1)
	k = -1
	self := Pose{P: pos, Q: c.orient}
	moving := dir.Len() > 0

	consider := func(d float64, nrm mgl64.Vec3, idx int) {
		if moving && d <= skin+touchEpsilon && nrm.Dot(dir) >= -grazeEpsilon {
			return
		}
		if d < best {
			best, n, k = d, nrm, idx
		}
	}

	for i := range blockers {
		b := &blockers[i]
		for _, s := range c.samples {
			p := self.Transform(s)
			d, nl := b.geom.distance(b.pose.TransformInv(p))
			consider(d, b.pose.Rotate(nl), i)
		}
		for _, s := range b.samples {
			p := b.pose.Transform(s)
			d, nl := c.geom.distance(self.TransformInv(p))
			consider(d, self.Rotate(nl).Mul(-1), i)
		}
	}
	return best - skin, n, k
}

// sweep advances along dir by conservative advancement and returns the
// distance traveled, the contact normal and the blocker hit, or -1.
func (c *Controller) sweep(dir mgl64.Vec3, length float64, blockers []blocker, skin float64) (float64, mgl64.Vec3, int) {
	travel := 0.0
	for i := 0; i < maxSweepSteps; i++ {
		gap, n, k := c.gapAt(c.pos.Add(dir.Mul(travel)), dir, blockers, skin)
		if k < 0 || travel+gap >= length {
			return length, mgl64.Vec3{}, -1
		}
		if gap <= touchEpsilon {
			if gap < 0 {
				travel = math.Max(0, travel+gap/math.Max(-n.Dot(dir), 0.1))
			}
			return travel, n, k
		}
		travel += gap
	}
	return travel, mgl64.Vec3{}, -1
}
