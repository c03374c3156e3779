package phase

// BarrierId enumerates the eight canonical synchronization barriers.
type BarrierId int

const (
	InputSnapshot BarrierId = iota
	NetworkReconciled
	SimulationComplete
	SceneStable
	SnapshotReady
	ParallelComplete
	CommandReady
	AsyncPublishReady

	barrierCount
)

// BarrierCount is the number of canonical barriers.
const BarrierCount = int(barrierCount)

func (b BarrierId) String() string {
	if b < 0 || int(b) >= BarrierCount {
		return "BarrierId(invalid)"
	}
	return barrierNames[b]
}

var barrierNames = [BarrierCount]string{
	InputSnapshot:      "InputSnapshot",
	NetworkReconciled:  "NetworkReconciled",
	SimulationComplete: "SimulationComplete",
	SceneStable:        "SceneStable",
	SnapshotReady:      "SnapshotReady",
	ParallelComplete:   "ParallelComplete",
	CommandReady:       "CommandReady",
	AsyncPublishReady:  "AsyncPublishReady",
}

// BarrierDesc pins a barrier to the phase after whose completion it
// fires. Downstream phases may rely on every effect established by
// AfterPhase having been observed once the barrier has fired.
type BarrierDesc struct {
	Id         BarrierId
	AfterPhase Id
}

// BarrierRegistry is the canonical, ordered table of barrier
// descriptions, indexed by BarrierId. Exactly one barrier exists per
// BarrierDesc.AfterPhase; no two barriers share an AfterPhase.
var BarrierRegistry = [BarrierCount]BarrierDesc{
	InputSnapshot:      {InputSnapshot, FrameStart},
	NetworkReconciled:  {NetworkReconciled, NetworkReconciliation},
	SimulationComplete: {SimulationComplete, FixedSimulation},
	SceneStable:        {SceneStable, SceneMutation},
	SnapshotReady:      {SnapshotReady, TransformPropagation},
	ParallelComplete:   {ParallelComplete, ParallelTasks},
	CommandReady:       {CommandReady, PreRender},
	AsyncPublishReady:  {AsyncPublishReady, AsyncPoll},
}

// BarrierDescOf returns the BarrierDesc for b.
func BarrierDescOf(b BarrierId) BarrierDesc {
	if b < 0 || int(b) >= BarrierCount {
		panic("phase: barrier id out of range")
	}
	return BarrierRegistry[b]
}

// init verifies the barrier registry invariant spec.md §4.1 requires:
// exactly one barrier per AfterPhase. That no two phases share a
// numeric id follows from Go's iota and is not checked here.
func init() {
	seen := make(map[Id]BarrierId, BarrierCount)
	for _, b := range BarrierRegistry {
		if other, ok := seen[b.AfterPhase]; ok {
			panic("phase: duplicate barrier after-phase: " + b.AfterPhase.String() +
				" claimed by both " + other.String() + " and " + b.Id.String())
		}
		seen[b.AfterPhase] = b.Id
	}
}
