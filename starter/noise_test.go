package starter

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("NoiseSource", func() {
	It("should stay within the magnitude bound", func() {
		src := NewNoiseSource(42)

		for i := 0; i < 10000; i++ {
			v := src.Sample(0.3)
			Expect(v).To(BeNumerically(">=", -0.3))
			Expect(v).To(BeNumerically("<=", 0.3))
		}
	})

	It("should produce identical sequences for identical seeds", func() {
		src1 := NewNoiseSource(7)
		src2 := NewNoiseSource(7)

		for i := 0; i < 1000; i++ {
			Expect(src1.Sample(1.0)).To(Equal(src2.Sample(1.0)))
		}
	})

	It("should produce different sequences for different seeds", func() {
		src1 := NewNoiseSource(1)
		src2 := NewNoiseSource(2)

		same := true
		for i := 0; i < 100; i++ {
			if src1.Sample(1.0) != src2.Sample(1.0) {
				same = false
			}
		}

		Expect(same).To(BeFalse())
	})

	It("should advance one draw per call regardless of magnitude", func() {
		src1 := NewNoiseSource(7)
		src2 := NewNoiseSource(7)

		// Interleave magnitudes; the underlying draws must stay aligned.
		src1.Sample(1.0)
		src2.Sample(100.0)

		Expect(src1.Sample(1.0)).To(Equal(src2.Sample(1.0)))
	})

	It("should return zero for zero magnitude", func() {
		src := NewNoiseSource(42)

		Expect(src.Sample(0)).To(BeZero())
	})
})
