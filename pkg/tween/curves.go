package tween

// Easing curves transform linear animation progress into natural-feeling
// motion. Each curve maps t in [0, 1] to a shaped value; set an
// Animator's Curve field to apply one.

// Linear returns linear progress (no easing).
func Linear(t float64) float64 { return t }

// Ease is a standard cubic bezier curve for general-purpose easing.
// Equivalent to CSS ease.
var Ease = CubicBezier(0.25, 0.1, 0.25, 1.0)

// EaseIn starts slowly and accelerates. Equivalent to CSS ease-in.
var EaseIn = CubicBezier(0.4, 0.0, 1.0, 1.0)

// EaseOut starts quickly and decelerates. Equivalent to CSS ease-out.
var EaseOut = CubicBezier(0.0, 0.0, 0.2, 1.0)

// EaseInOut starts and ends slowly with acceleration in the middle.
// Equivalent to CSS ease-in-out.
var EaseInOut = CubicBezier(0.4, 0.0, 0.2, 1.0)

// CubicBezier returns a cubic-bezier easing function matching CSS
// cubic-bezier(). The parameters define the two control points (x1,y1)
// and (x2,y2); the curve runs from (0,0) to (1,1).
func CubicBezier(x1, y1, x2, y2 float64) func(float64) float64 {
	return func(t float64) float64 {
		if t <= 0 {
			return 0
		}
		if t >= 1 {
			return 1
		}
		// Solve for the bezier parameter u where x(u) = t, then return
		// y(u). Newton iteration with a bisection fallback.
		u := t
		for i := 0; i < 8; i++ {
			x := bezier(x1, x2, u) - t
			if x > -1e-7 && x < 1e-7 {
				return bezier(y1, y2, u)
			}
			dx := bezierDeriv(x1, x2, u)
			if dx > -1e-7 && dx < 1e-7 {
				break
			}
			u -= x / dx
		}

		lo, hi := 0.0, 1.0
		for i := 0; i < 32; i++ {
			u = (lo + hi) / 2
			if bezier(x1, x2, u) < t {
				lo = u
			} else {
				hi = u
			}
		}
		return bezier(y1, y2, u)
	}
}

// bezier evaluates a one-dimensional cubic bezier with control points
// p1, p2 (endpoints fixed at 0 and 1).
func bezier(p1, p2, u float64) float64 {
	inv := 1 - u
	return 3*inv*inv*u*p1 + 3*inv*u*u*p2 + u*u*u
}

func bezierDeriv(p1, p2, u float64) float64 {
	inv := 1 - u
	return 3*inv*inv*p1 + 6*inv*u*(p2-p1) + 3*u*u*(1-p2)
}
