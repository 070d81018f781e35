package scene

import (
	"math"
	"testing"
)

func TestCameraCoverFit(t *testing.T) {
	c := NewCamera()
	c.FitToScreen(1920, 1080)
	if c.Scale != 1.5 {
		t.Errorf("scale = %v, want 1.5", c.Scale)
	}
	if c.OriginX != 0 || c.OriginY != 0 {
		t.Errorf("origin = (%v,%v), want (0,0)", c.OriginX, c.OriginY)
	}

	c.FitToScreen(1000, 1000)
	want := 1000.0 / WorldHeight
	if math.Abs(c.Scale-want) > 1e-12 {
		t.Errorf("scale = %v, want %v", c.Scale, want)
	}
	if c.OriginX >= 0 {
		t.Errorf("origin x = %v, want negative overflow for a square viewport", c.OriginX)
	}
	if c.OriginY != 0 {
		t.Errorf("origin y = %v, want 0", c.OriginY)
	}
}

func TestCameraIgnoresEmptyViewport(t *testing.T) {
	c := NewCamera()
	c.FitToScreen(1920, 1080)
	c.FitToScreen(0, 500)
	c.FitToScreen(500, -1)
	if c.Scale != 1.5 || c.ViewW != 1920 {
		t.Fatalf("camera changed on empty viewport: %+v", *c)
	}
}

func TestCameraRoundTrip(t *testing.T) {
	sizes := [][2]float64{{1920, 1080}, {800, 600}, {375, 812}, {3440, 1440}, {1, 1}}
	for _, sz := range sizes {
		c := NewCamera()
		c.FitToScreen(sz[0], sz[1])
		for i := 0; i <= 10; i++ {
			for j := 0; j <= 10; j++ {
				sx, sy := sz[0]*float64(i)/10, sz[1]*float64(j)/10
				gx, gy := c.WorldToScreen(c.ScreenToWorld(sx, sy))
				if math.Abs(gx-sx) > 1e-9 || math.Abs(gy-sy) > 1e-9 {
					t.Fatalf("%vx%v: round trip (%v,%v) -> (%v,%v)", sz[0], sz[1], sx, sy, gx, gy)
				}
			}
		}
	}
}

func TestCameraCentreMapsToWorldCentre(t *testing.T) {
	c := NewCamera()
	c.FitToScreen(800, 800)
	p := c.ScreenToWorld(400, 400)
	if math.Abs(p.X-WorldWidth/2) > 1e-9 || math.Abs(p.Y-WorldHeight/2) > 1e-9 {
		t.Fatalf("centre = %+v, want (%v,%v)", p, WorldWidth/2, WorldHeight/2)
	}
}
