package world

import (
	"github.com/assisi-engine/arsenal/spawn"
	"github.com/go-gl/mathgl/mgl32"
	"golang.org/x/exp/slog"
)

// PoolName is the name reported in the logs and statistics of pools built by NewPool
const PoolName = "WorldObjects"

// NewPool builds a pool of world objects whose first page holds initialSlots objects.
// Objects start at the identity transform with no mesh and the white texture.
func NewPool(logger *slog.Logger, initialSlots int) (*spawn.Pool[WorldObject], error) {
	return spawn.New[WorldObject](logger, spawn.CreateOptions[WorldObject]{
		Name:         PoolName,
		InitialSlots: initialSlots,
	})
}

// SpawnMesh creates an unrotated, unit-scale object at position that draws mesh
func SpawnMesh(pool *spawn.Pool[WorldObject], mesh MeshID, position mgl32.Vec3) (spawn.Handle, error) {
	handle, err := pool.Create()
	if err != nil {
		return spawn.NoHandle, err
	}

	object, err := pool.Get(handle)
	if err != nil {
		return spawn.NoHandle, err
	}

	object.SetMesh(mesh)
	object.Transform().SetWorldPosition(position)

	return handle, nil
}

// Spinner is a tick handler that turns every object about the world Y axis
type Spinner struct {
	DegreesPerSecond float32
}

func (s Spinner) TickObject(handle spawn.Handle, object *WorldObject, deltaSeconds float32) {
	object.Transform().RotateByEulerDegrees(mgl32.Vec3{0, s.DegreesPerSecond * deltaSeconds, 0})
}
