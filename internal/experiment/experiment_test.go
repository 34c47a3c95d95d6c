package experiment_test

import (
	"context"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/suspopt/internal/config"
	"github.com/san-kum/suspopt/internal/dynamo"
	"github.com/san-kum/suspopt/internal/experiment"
)

func finiteNonNegative(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0
}

var _ = Describe("Experiment", func() {
	var cfg *config.Config

	BeforeEach(func() {
		cfg = config.DefaultConfig()
	})

	Describe("configuration", func() {
		DescribeTable("fails fast on invalid inputs",
			func(mutate func(*config.Config)) {
				mutate(cfg)
				_, err := experiment.New(cfg, nil)
				Expect(err).To(MatchError(dynamo.ErrInvalidConfig))
			},
			Entry("inverted tire range", func(c *config.Config) { c.Tire = config.RangeConfig{Min: 0.0381, Max: 0.01905} }),
			Entry("zero suspension compression", func(c *config.Config) { c.Suspension.Min = 0 }),
			Entry("negative sprung mass", func(c *config.Config) { c.Vehicle.SprungMass = -450 }),
			Entry("zero unsprung mass", func(c *config.Config) { c.Vehicle.UnsprungMass = 0 }),
			Entry("stationary vehicle", func(c *config.Config) { c.Road.Speed = 0 }),
			Entry("flat ramp", func(c *config.Config) { c.Road.RampAngle = 0 }),
			Entry("zero duration", func(c *config.Config) { c.Simulation.Duration = 0 }),
			Entry("negative penalty", func(c *config.Config) { c.Objective.BoundPenalty = -1 }),
		)

		It("seeds the initial guess from the lower stiffness bounds", func() {
			exp, err := experiment.New(cfg, nil)
			Expect(err).NotTo(HaveOccurred())

			guess := exp.InitialGuess()
			Expect(guess.K1).To(Equal(exp.Limits().Suspension.Min))
			Expect(guess.K2).To(Equal(exp.Limits().Tire.Min))
			Expect(guess.C1).To(Equal(1000.0))
		})

		It("keeps an explicit guess", func() {
			cfg.Search.InitialGuess = config.GuessConfig{K1: 40000, C1: 2000, K2: 15000}
			exp, err := experiment.New(cfg, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(exp.InitialGuess().K1).To(Equal(40000.0))
			Expect(exp.InitialGuess().K2).To(Equal(15000.0))
		})
	})

	Describe("reference scenario", func() {
		It("returns finite non-negative parameters no worse than the initial guess", func() {
			exp, err := experiment.New(cfg, nil)
			Expect(err).NotTo(HaveOccurred())

			res, err := exp.Run(context.Background())
			Expect(err).NotTo(HaveOccurred())

			Expect(finiteNonNegative(res.Params.K1)).To(BeTrue(), "k1=%v", res.Params.K1)
			Expect(finiteNonNegative(res.Params.C1)).To(BeTrue(), "c1=%v", res.Params.C1)
			Expect(finiteNonNegative(res.Params.K2)).To(BeTrue(), "k2=%v", res.Params.K2)
			Expect(res.Score.Diverged).To(BeFalse())
			Expect(res.Score.Total).To(BeNumerically("<=", res.InitialScore.Total))
			Expect(res.Evaluations).To(BeNumerically(">", 0))
			Expect(res.Status).NotTo(BeEmpty())
		})

		It("reproduces the winning score when the trajectory is replayed", func() {
			cfg.Search.MaxEvaluations = 100
			exp, err := experiment.New(cfg, nil)
			Expect(err).NotTo(HaveOccurred())

			res, err := exp.Run(context.Background())
			Expect(err).NotTo(HaveOccurred())

			traj, err := exp.Objective().Trajectory(res.Params)
			Expect(err).NotTo(HaveOccurred())
			Expect(traj.Score.Total).To(Equal(res.Score.Total))
			Expect(traj.States).To(HaveLen(cfg.Simulation.Samples))
		})
	})

	Describe("grid sweep", func() {
		It("starts the search from the best grid point when it beats the guess", func() {
			cfg.Search.GridPoints = 3
			cfg.Search.MaxEvaluations = 150
			exp, err := experiment.New(cfg, nil)
			Expect(err).NotTo(HaveOccurred())

			best, v, err := exp.Sweep(context.Background(), 3)
			Expect(err).NotTo(HaveOccurred())
			Expect(exp.Limits().Suspension.Contains(best.K1)).To(BeTrue())
			Expect(exp.Limits().Tire.Contains(best.K2)).To(BeTrue())
			Expect(v).To(Equal(exp.Objective().Evaluate(best)))

			res, err := exp.Run(context.Background())
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Score.Total).To(BeNumerically("<=", math.Min(v, res.InitialScore.Total)))
		})

		It("stops when the context is canceled", func() {
			cfg.Search.GridPoints = 4
			exp, err := experiment.New(cfg, nil)
			Expect(err).NotTo(HaveOccurred())

			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			_, err = exp.Run(ctx)
			Expect(err).To(MatchError(context.Canceled))
		})
	})

	Describe("short window", func() {
		It("never reaches the plateau inside the sampled window", func() {
			cfg = config.GetPreset("short-window")
			exp, err := experiment.New(cfg, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Simulation.Duration).To(BeNumerically("<", exp.Ramp().TraversalTime))

			traj, err := exp.Objective().Trajectory(exp.InitialGuess())
			Expect(err).NotTo(HaveOccurred())
			for i := 1; i < len(traj.Road); i++ {
				Expect(traj.Road[i]).To(BeNumerically(">", traj.Road[i-1]))
			}
		})
	})
})
