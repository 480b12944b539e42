package main

import (
	"math"
	"testing"
)

func TestSpawnFirstCandidateIsInnerRing(t *testing.T) {
	p := SpawnPosition(nil)
	want := Position{X: MapWidth/2 + spawnRingStart, Y: MapHeight / 2}
	if math.Abs(p.X-want.X) > 1e-9 || math.Abs(p.Y-want.Y) > 1e-9 {
		t.Errorf("expected first ring candidate %v, got %v", want, p)
	}
}

func TestSpawnAvoidsOccupiedPositions(t *testing.T) {
	var occupied []Position
	for i := 0; i < SpaceCapacity-1; i++ {
		p := SpawnPosition(occupied)
		for _, o := range occupied {
			if d := Distance(p.X, p.Y, o.X, o.Y); d <= spawnMinDistance {
				t.Fatalf("spawn %v only %.2f from %v (min %v)", p, d, o, spawnMinDistance)
			}
		}
		occupied = append(occupied, p)
	}
}

func TestSpawnStaysInsideBounds(t *testing.T) {
	var occupied []Position
	for i := 0; i < 20; i++ {
		p := SpawnPosition(occupied)
		if p.X < UserRadius || p.X > MapWidth-UserRadius || p.Y < UserRadius || p.Y > MapHeight-UserRadius {
			t.Fatalf("spawn %v crosses the map edge", p)
		}
		occupied = append(occupied, p)
	}
}

func TestClampToMap(t *testing.T) {
	tests := []struct {
		in, want Position
	}{
		{Position{X: -50, Y: 2000}, Position{X: UserRadius, Y: 2000}},
		{Position{X: 2000, Y: MapHeight + 10}, Position{X: 2000, Y: MapHeight - UserRadius}},
		{Position{X: 2000, Y: 2000}, Position{X: 2000, Y: 2000}},
	}
	for _, tt := range tests {
		if got := clampToMap(tt.in); got != tt.want {
			t.Errorf("clampToMap(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
