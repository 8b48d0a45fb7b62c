package planner

import (
	"math"

	"github.com/bft-labs/tickship/internal/domain"
)

// Synthetic generates deterministic control frames for a fixed fleet.
// Throttle and steer follow slow sine waves with a per-actor phase offset;
// every BrakeEvery ticks the fleet brakes for one tick.
type Synthetic struct {
	Actors       int
	FirstActorID domain.ActorID

	// BrakeEvery is the braking cadence in ticks. 0 disables braking.
	BrakeEvery uint64

	// DropEvery, when non-zero, omits the last actor from every DropEvery-th
	// frame, as if it deregistered for that tick.
	DropEvery uint64
}

// Next implements ports.FrameSource. A synthetic source never runs out.
func (s Synthetic) Next(tick uint64) (domain.Frame, bool) {
	n := s.Actors
	if s.DropEvery > 0 && n > 0 && tick > 0 && tick%s.DropEvery == 0 {
		n--
	}

	entries := make([]domain.Entry, n)
	t := float64(tick) / 20
	braking := s.BrakeEvery > 0 && tick > 0 && tick%s.BrakeEvery == 0

	for i := 0; i < n; i++ {
		phase := float64(i) * math.Pi / 4
		ctl := domain.ControlValues{
			Throttle: 0.5 + 0.3*math.Sin(t+phase),
			Steer:    0.2 * math.Sin(t/2+phase),
		}
		if braking {
			ctl.Throttle = 0
			ctl.Brake = 0.6
		}
		entries[i] = domain.Entry{
			Actor:   s.FirstActorID + domain.ActorID(i),
			Control: ctl,
		}
	}

	// Actor IDs are consecutive, so the frame cannot contain duplicates.
	return domain.MustFrame(entries...), true
}
