package osm

import (
	"testing"

	"github.com/paulmach/osm"
)

func TestIsCarAccessible(t *testing.T) {
	tests := []struct {
		name string
		tags osm.Tags
		want bool
	}{
		{
			name: "residential road",
			tags: osm.Tags{{Key: "highway", Value: "residential"}},
			want: true,
		},
		{
			name: "motorway",
			tags: osm.Tags{{Key: "highway", Value: "motorway"}},
			want: true,
		},
		{
			name: "footway (not car accessible)",
			tags: osm.Tags{{Key: "highway", Value: "footway"}},
			want: false,
		},
		{
			name: "cycleway",
			tags: osm.Tags{{Key: "highway", Value: "cycleway"}},
			want: false,
		},
		{
			name: "private access",
			tags: osm.Tags{
				{Key: "highway", Value: "residential"},
				{Key: "access", Value: "private"},
			},
			want: false,
		},
		{
			name: "motor_vehicle=no",
			tags: osm.Tags{
				{Key: "highway", Value: "residential"},
				{Key: "motor_vehicle", Value: "no"},
			},
			want: false,
		},
		{
			name: "area=yes (pedestrian plaza)",
			tags: osm.Tags{
				{Key: "highway", Value: "service"},
				{Key: "area", Value: "yes"},
			},
			want: false,
		},
		{
			name: "no highway tag",
			tags: osm.Tags{{Key: "name", Value: "Some Street"}},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isCarAccessible(tt.tags); got != tt.want {
				t.Errorf("isCarAccessible() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDirectionFlags(t *testing.T) {
	tests := []struct {
		name         string
		tags         osm.Tags
		wantForward  bool
		wantBackward bool
	}{
		{
			name:         "default bidirectional",
			tags:         osm.Tags{{Key: "highway", Value: "residential"}},
			wantForward:  true,
			wantBackward: true,
		},
		{
			name:         "motorway implied oneway",
			tags:         osm.Tags{{Key: "highway", Value: "motorway"}},
			wantForward:  true,
			wantBackward: false,
		},
		{
			name: "roundabout implied oneway",
			tags: osm.Tags{
				{Key: "highway", Value: "residential"},
				{Key: "junction", Value: "roundabout"},
			},
			wantForward:  true,
			wantBackward: false,
		},
		{
			name: "explicit oneway=-1 (reverse)",
			tags: osm.Tags{
				{Key: "highway", Value: "primary"},
				{Key: "oneway", Value: "-1"},
			},
			wantForward:  false,
			wantBackward: true,
		},
		{
			name: "explicit oneway=no overrides implied",
			tags: osm.Tags{
				{Key: "highway", Value: "motorway"},
				{Key: "oneway", Value: "no"},
			},
			wantForward:  true,
			wantBackward: true,
		},
		{
			name: "oneway=reversible skips entirely",
			tags: osm.Tags{
				{Key: "highway", Value: "primary"},
				{Key: "oneway", Value: "reversible"},
			},
			wantForward:  false,
			wantBackward: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fwd, bwd := directionFlags(tt.tags)
			if fwd != tt.wantForward || bwd != tt.wantBackward {
				t.Errorf("directionFlags() = (%v, %v), want (%v, %v)", fwd, bwd, tt.wantForward, tt.wantBackward)
			}
		})
	}
}

func TestSpeedKmh(t *testing.T) {
	tests := []struct {
		name string
		tags osm.Tags
		want uint32
	}{
		{
			name: "class default",
			tags: osm.Tags{{Key: "highway", Value: "residential"}},
			want: 30,
		},
		{
			name: "explicit maxspeed",
			tags: osm.Tags{
				{Key: "highway", Value: "residential"},
				{Key: "maxspeed", Value: "50"},
			},
			want: 50,
		},
		{
			name: "maxspeed in mph",
			tags: osm.Tags{
				{Key: "highway", Value: "primary"},
				{Key: "maxspeed", Value: "30 mph"},
			},
			want: 48,
		},
		{
			name: "maxspeed=none falls back to class",
			tags: osm.Tags{
				{Key: "highway", Value: "motorway"},
				{Key: "maxspeed", Value: "none"},
			},
			want: 120,
		},
		{
			name: "unparseable maxspeed falls back to class",
			tags: osm.Tags{
				{Key: "highway", Value: "secondary"},
				{Key: "maxspeed", Value: "walk"},
			},
			want: 60,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := speedKmh(tt.tags); got != tt.want {
				t.Errorf("speedKmh() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestCapacityPerHour(t *testing.T) {
	tests := []struct {
		name     string
		tags     osm.Tags
		fwd, bwd bool
		want     uint32
	}{
		{
			name: "class default",
			tags: osm.Tags{{Key: "highway", Value: "residential"}},
			fwd:  true, bwd: true,
			want: 600,
		},
		{
			name: "oneway with lanes",
			tags: osm.Tags{
				{Key: "highway", Value: "motorway"},
				{Key: "lanes", Value: "3"},
			},
			fwd:  true, bwd: false,
			want: 6000,
		},
		{
			name: "bidirectional splits lanes",
			tags: osm.Tags{
				{Key: "highway", Value: "primary"},
				{Key: "lanes", Value: "4"},
			},
			fwd:  true, bwd: true,
			want: 3000,
		},
		{
			name: "bad lanes tag falls back to class",
			tags: osm.Tags{
				{Key: "highway", Value: "primary"},
				{Key: "lanes", Value: "two"},
			},
			fwd:  true, bwd: true,
			want: 1500,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := capacityPerHour(tt.tags, tt.fwd, tt.bwd); got != tt.want {
				t.Errorf("capacityPerHour() = %d, want %d", got, tt.want)
			}
		})
	}
}
