package speed_test

import (
	"math"
	"sync"
	"time"

	"github.com/google/go-cmp/cmp"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/speedpid/internal/control"
	"github.com/san-kum/speedpid/internal/estimate"
	"github.com/san-kum/speedpid/internal/speed"
)

var epoch = time.Unix(1_600_000_000, 0)

func pose(sec, x, y, theta float64) estimate.PoseSample {
	return estimate.PoseSample{
		Stamp: epoch.Add(time.Duration(sec * float64(time.Second))),
		X:     x,
		Y:     y,
		Theta: theta,
	}
}

func proportional() control.Params {
	return control.Params{Kp: 1, PLimit: 100, ILimit: 100, DLimit: 100}
}

func newController(cfg speed.Config) *speed.Controller {
	c, err := speed.New(cfg)
	Expect(err).NotTo(HaveOccurred())
	return c
}

var _ = Describe("Controller", func() {
	var c *speed.Controller

	BeforeEach(func() {
		c = newController(speed.Config{PID: proportional(), ConstantSpeed: 0.5})
	})

	Describe("construction", func() {
		It("rejects negative limits", func() {
			_, err := speed.New(speed.Config{PID: control.Params{PLimit: -1}})
			Expect(err).To(HaveOccurred())
		})

		It("rejects an unknown policy", func() {
			_, err := speed.New(speed.Config{PID: proportional(), Policy: "bang-bang"})
			Expect(err).To(MatchError(ContainSubstring("bang-bang")))
		})

		It("rejects a non-finite constant speed", func() {
			_, err := speed.New(speed.Config{PID: proportional(), ConstantSpeed: math.Inf(1)})
			Expect(err).To(HaveOccurred())
		})

		It("defaults to the quantized policy", func() {
			c.UpdateSetpoint(0.01)
			Expect(c.Setpoint()).To(Equal(0.5))
		})
	})

	Describe("UpdateSetpoint", func() {
		It("quantizes commands to the constant speed", func() {
			var got []float64
			for _, in := range []float64{5.0, -3.0, 0.0} {
				c.UpdateSetpoint(in)
				got = append(got, c.Setpoint())
			}
			Expect(cmp.Diff([]float64{0.5, -0.5, 0.0}, got)).To(BeEmpty())
		})

		It("treats NaN as stop under the quantized policy", func() {
			c.UpdateSetpoint(1)
			c.UpdateSetpoint(math.NaN())
			Expect(c.Setpoint()).To(Equal(0.0))
		})

		It("clamps commands under the proportional policy", func() {
			p := newController(speed.Config{PID: proportional(), Policy: speed.PolicyProportional})
			var got []float64
			for _, in := range []float64{0.25, 4, -7, math.NaN(), -0.5} {
				p.UpdateSetpoint(in)
				got = append(got, p.Setpoint())
			}
			Expect(cmp.Diff([]float64{0.25, 1, -1, 0, -0.5}, got)).To(BeEmpty())
		})

		It("does not touch pose state", func() {
			c.UpdateSetpoint(1)
			Expect(c.Snapshot().Seeded).To(BeFalse())
			Expect(c.Snapshot().Stats.Updates).To(BeZero())
		})
	})

	Describe("UpdatePose", func() {
		It("returns exactly zero on the first sample and only seeds", func() {
			c.UpdateSetpoint(1)
			before := c.Snapshot()

			Expect(c.UpdatePose(pose(3, 10, -4, 2))).To(Equal(0.0))

			after := c.Snapshot()
			Expect(after.Seeded).To(BeTrue())
			Expect(after.Setpoint).To(Equal(before.Setpoint))
			Expect(after.Integral).To(Equal(before.Integral))
			Expect(after.Terms).To(Equal(before.Terms))
			Expect(after.Stats.Steps).To(BeZero())
		})

		It("outputs setpoint minus measured speed with a pure P loop", func() {
			c.UpdateSetpoint(1)
			c.UpdatePose(pose(0, 0, 0, 0))
			Expect(c.UpdatePose(pose(0.5, 0.2, 0, 0))).To(BeNumerically("~", 0.5-0.4, 1e-12))
		})

		It("measures one unit per second forward as positive speed", func() {
			c.UpdatePose(pose(0, 0, 0, 0))
			out := c.UpdatePose(pose(1, 1, 0, 0))
			Expect(c.Snapshot().Speed).To(BeNumerically("~", 1.0, 1e-12))
			// Setpoint is zero, so the loop brakes against forward motion.
			Expect(out).To(BeNumerically("~", -1.0, 1e-12))
		})

		It("measures reversing as negative speed", func() {
			c.UpdatePose(pose(0, 0, 0, 0))
			out := c.UpdatePose(pose(1, -2, 0, 0))
			Expect(c.Snapshot().Speed).To(BeNumerically("~", -2.0, 1e-12))
			Expect(out).To(BeNumerically(">", 0))
		})

		It("honours an inverted mount", func() {
			inv := newController(speed.Config{PID: proportional(), InvertDirection: true})
			inv.UpdatePose(pose(0, 0, 0, 0))
			inv.UpdatePose(pose(1, 1, 0, 0))
			Expect(inv.Snapshot().Speed).To(BeNumerically("~", -1.0, 1e-12))
		})

		It("drops a zero interval and repeats the previous output", func() {
			c.UpdateSetpoint(1)
			c.UpdatePose(pose(0, 0, 0, 0))
			prev := c.UpdatePose(pose(1, 0.25, 0, 0))

			out := c.UpdatePose(pose(1, 5, 0, 0))
			Expect(out).To(Equal(prev))
			Expect(math.IsNaN(out) || math.IsInf(out, 0)).To(BeFalse())
			Expect(c.Snapshot().Stats.Dropped).To(Equal(uint64(1)))

			// The dropped sample still replaced the stored one.
			next := c.UpdatePose(pose(2, 5.25, 0, 0))
			Expect(next).To(BeNumerically("~", 0.25, 1e-12))
		})

		It("returns zero when the first pair is degenerate", func() {
			c.UpdateSetpoint(1)
			c.UpdatePose(pose(1, 0, 0, 0))
			Expect(c.UpdatePose(pose(1, 1, 0, 0))).To(Equal(0.0))
			Expect(c.UpdatePose(pose(0.5, 1, 0, 0))).To(Equal(0.0))
		})

		It("drops samples with non-finite coordinates", func() {
			c.UpdateSetpoint(1)
			c.UpdatePose(pose(0, 0, 0, 0))
			prev := c.UpdatePose(pose(1, 0.5, 0, 0))
			out := c.UpdatePose(pose(2, math.NaN(), 0, 0))
			Expect(out).To(Equal(prev))
			Expect(math.IsNaN(c.Snapshot().Integral)).To(BeFalse())
		})

		It("scales the integral by the sample interval", func() {
			pi := newController(speed.Config{
				PID:           control.Params{Ki: 1, PLimit: 10, ILimit: 10, DLimit: 10},
				ConstantSpeed: 1,
			})
			pi.UpdateSetpoint(1)
			pi.UpdatePose(pose(0, 0, 0, 0))
			pi.UpdatePose(pose(0.5, 0, 0, 0))
			out := pi.UpdatePose(pose(2, 0, 0, 0))
			Expect(out).To(BeNumerically("~", 2.0, 1e-12))
		})
	})

	Describe("Reset", func() {
		It("makes the next sample seed again", func() {
			c.UpdateSetpoint(1)
			c.UpdatePose(pose(0, 0, 0, 0))
			c.UpdatePose(pose(1, 0.5, 0, 0))
			c.Reset()

			Expect(c.Snapshot().Seeded).To(BeFalse())
			Expect(c.UpdatePose(pose(2, 9, 9, 0))).To(Equal(0.0))
			Expect(c.Setpoint()).To(Equal(0.5))
			Expect(c.Snapshot().Integral).To(BeZero())
		})
	})

	Describe("concurrent producers", func() {
		It("serializes setpoint and pose streams", func() {
			const n = 2000
			var wg sync.WaitGroup
			outputs := make([]float64, 0, n)
			c.UpdateSetpoint(1)

			wg.Add(2)
			go func() {
				defer GinkgoRecover()
				defer wg.Done()
				for i := 0; i < n; i++ {
					if i%2 == 0 {
						c.UpdateSetpoint(1)
					} else {
						c.UpdateSetpoint(-1)
					}
				}
			}()
			go func() {
				defer GinkgoRecover()
				defer wg.Done()
				for i := 0; i < n; i++ {
					outputs = append(outputs, c.UpdatePose(pose(float64(i)*0.01, float64(i)*0.005, 0, 0)))
				}
			}()
			wg.Wait()

			Expect(outputs).To(HaveLen(n))
			Expect(outputs[0]).To(Equal(0.0))
			for _, out := range outputs {
				Expect(math.IsNaN(out)).To(BeFalse())
				// Measured speed is 0.5 and the setpoint is ±0.5, so the
				// proportional output is either 0 or -1.
				Expect(out).To(Or(BeNumerically("~", 0, 1e-6), BeNumerically("~", -1, 1e-6)))
			}
			snap := c.Snapshot()
			Expect(snap.Stats.Updates).To(Equal(uint64(n)))
			Expect(snap.Stats.Steps).To(Equal(uint64(n - 1)))
		})
	})
})
