package bottleneckanalysis

import (
	"bytes"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/sarchlab/cxlsim/sim"
)

var _ = Describe("BufferAnalyzer", func() {
	var (
		mockCtrl   *gomock.Controller
		timeTeller *MockTimeTeller
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		timeTeller = NewMockTimeTeller(mockCtrl)
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	times := func(ts ...sim.VTime) {
		calls := make([]any, 0, len(ts))
		for _, t := range ts {
			calls = append(calls, timeTeller.EXPECT().CurrentTime().Return(t))
		}

		gomock.InOrder(calls...)
	}

	It("should calculate average buffer level", func() {
		bufferAnalyzer := NewBufferAnalyzer(timeTeller)
		times(0, 0, 10, 20, 30, 40)

		buf := bufferAnalyzer.CreateBuffer("Buf", 10)
		buf.Push(1)
		buf.Push(1)
		buf.Push(1)
		buf.Push(1)

		levels := bufferAnalyzer.Levels()

		Expect(levels).To(HaveLen(1))
		Expect(levels[0].Average).To(Equal(2.5))
		Expect(levels[0].Max).To(Equal(4))
		Expect(levels[0].Current).To(Equal(4))
		Expect(levels[0].Capacity).To(Equal(10))
	})

	It("should count pops", func() {
		bufferAnalyzer := NewBufferAnalyzer(timeTeller)
		times(0, 0, 10, 40)

		buf := bufferAnalyzer.CreateBuffer("Buf", 10)
		buf.Push(1)
		buf.Pop()

		levels := bufferAnalyzer.Levels()

		Expect(levels[0].Average).To(BeNumerically("~", 0.25, 1e-9))
		Expect(levels[0].Max).To(Equal(1))
		Expect(levels[0].Current).To(Equal(0))
	})

	It("should calculate per-period buffer level", func() {
		bufferAnalyzer := NewBufferAnalyzerWithPeriod(timeTeller, 100)
		times(0, 0, 49, 98)

		buf := bufferAnalyzer.CreateBuffer("Buf", 10)
		buf.Push(1)
		buf.Push(1)

		Expect(bufferAnalyzer.Levels()[0].PeriodAverage).
			To(BeNumerically("~", 1.5, 0.01))
	})

	It("should restart the period average in a new period", func() {
		bufferAnalyzer := NewBufferAnalyzerWithPeriod(timeTeller, 100)
		times(0, 0, 49, 98, 150)

		buf := bufferAnalyzer.CreateBuffer("Buf", 10)
		buf.Push(1)
		buf.Push(1)
		buf.Push(1)

		Expect(bufferAnalyzer.Levels()[0].PeriodAverage).To(Equal(3.0))
	})

	It("should panic when watching a buffer twice", func() {
		bufferAnalyzer := NewBufferAnalyzer(timeTeller)
		times(0)

		buf := bufferAnalyzer.CreateBuffer("Buf", 10)

		Expect(func() { bufferAnalyzer.Watch(buf) }).To(Panic())
	})

	It("should report every buffer", func() {
		bufferAnalyzer := NewBufferAnalyzer(timeTeller)
		timeTeller.EXPECT().CurrentTime().Return(sim.VTime(0)).AnyTimes()

		bufferAnalyzer.CreateBuffer("B", 2)
		bufferAnalyzer.CreateBuffer("A", 4)

		var out bytes.Buffer
		bufferAnalyzer.Report(&out)

		Expect(out.String()).To(Equal(
			"A, 0, 0, 0, 0.0000, 0.0000, 4\n" +
				"B, 0, 0, 0, 0.0000, 0.0000, 2\n"))
	})
})
