package main

import "math"

const (
	spawnRingStart   = 2 * CollisionDistance // first ring radius
	spawnRingStep    = 3 * CollisionDistance // radius growth per ring
	spawnAngleStep   = 20                    // degrees between samples
	spawnMinDistance = 1.5 * CollisionDistance
	spawnMaxRadius   = MapWidth / 2
	spawnRandomTries = 50
)

// spawnFallback is the fixed off-center point used when both the
// spiral search and random sampling fail to find a clear spot.
var spawnFallback = Position{X: MapWidth/2 + 100, Y: MapHeight/2 + 100}

// clampToMap keeps a user's circular footprint inside the map bounds
func clampToMap(p Position) Position {
	return Position{
		X: Clamp(p.X, UserRadius, MapWidth-UserRadius),
		Y: Clamp(p.Y, UserRadius, MapHeight-UserRadius),
	}
}

// clearOf reports whether p keeps more than spawnMinDistance from
// every occupied position
func clearOf(p Position, occupied []Position) bool {
	for _, o := range occupied {
		if Distance(p.X, p.Y, o.X, o.Y) <= spawnMinDistance {
			return false
		}
	}
	return true
}

// SpawnPosition picks an initial position for a new member: rings
// spiral outward from the map center, sampled every spawnAngleStep
// degrees, and the first clamped candidate clear of every occupied
// position wins. If the spiral exhausts, up to spawnRandomTries
// uniform samples are tried before settling on the fixed fallback.
func SpawnPosition(occupied []Position) Position {
	cx := float64(MapWidth) / 2
	cy := float64(MapHeight) / 2

	for r := float64(spawnRingStart); r <= spawnMaxRadius; r += spawnRingStep {
		for deg := 0; deg < 360; deg += spawnAngleStep {
			rad := float64(deg) * math.Pi / 180
			p := clampToMap(Position{X: cx + r*math.Cos(rad), Y: cy + r*math.Sin(rad)})
			if clearOf(p, occupied) {
				return p
			}
		}
	}

	for i := 0; i < spawnRandomTries; i++ {
		p := Position{
			X: UserRadius + randFloat()*(MapWidth-2*UserRadius),
			Y: UserRadius + randFloat()*(MapHeight-2*UserRadius),
		}
		if clearOf(p, occupied) {
			return p
		}
	}

	return spawnFallback
}
