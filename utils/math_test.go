package utils

import (
	"math"
	"math/rand"
	"testing"

	"go.viam.com/test"
)

func TestDegRadConversions(t *testing.T) {
	test.That(t, DegToRad(180), test.ShouldAlmostEqual, math.Pi)
	test.That(t, RadToDeg(math.Pi/2), test.ShouldAlmostEqual, 90)
	test.That(t, RadToDeg(DegToRad(37.5)), test.ShouldAlmostEqual, 37.5)
}

func TestMedian(t *testing.T) {
	test.That(t, Median(3, 1, 2), test.ShouldEqual, 2)
	test.That(t, Median(4, 1, 2, 3), test.ShouldEqual, 3)
	test.That(t, math.IsNaN(Median()), test.ShouldBeTrue)
}

func TestSquare(t *testing.T) {
	test.That(t, Square(3), test.ShouldEqual, 9)
	test.That(t, Square(-2), test.ShouldEqual, 4)
	test.That(t, Square(0), test.ShouldEqual, 0)
}

func TestSampleRandomIntRange(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	for i := 0; i < 100; i++ {
		n := SampleRandomIntRange(5, 10, r)
		test.That(t, n, test.ShouldBeGreaterThanOrEqualTo, 5)
		test.That(t, n, test.ShouldBeLessThanOrEqualTo, 10)
	}
}
