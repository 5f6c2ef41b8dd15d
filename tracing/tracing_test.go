package tracing

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/sarchlab/cxlsim/sim"
)

type fakeRecorder struct {
	tables  map[string][]any
	flushed int
	failOn  string
}

func newFakeRecorder() *fakeRecorder {
	return &fakeRecorder{tables: make(map[string][]any)}
}

func (r *fakeRecorder) CreateTable(name string, _ any) error {
	if name == r.failOn {
		return errors.New("cannot create")
	}

	r.tables[name] = nil

	return nil
}

func (r *fakeRecorder) InsertData(name string, entry any) error {
	r.tables[name] = append(r.tables[name], entry)
	return nil
}

func (r *fakeRecorder) ListTables() []string {
	return nil
}

func (r *fakeRecorder) Flush() error {
	r.flushed++
	return nil
}

var _ = Describe("Task API", func() {
	var (
		domain *sim.ComponentBase
		tasks  []Task
		poses  []*sim.HookPos
	)

	BeforeEach(func() {
		domain = sim.NewComponentBase("Comp")
		tasks = nil
		poses = nil
	})

	hook := sim.HookFunc(func(ctx sim.HookCtx) {
		tasks = append(tasks, ctx.Item.(Task))
		poses = append(poses, ctx.Pos)
	})

	It("should not invoke anything without hooks", func() {
		StartTask("1", "", domain, "req_in", "read", nil)
		AddTaskStep("1", domain, "sent")
		EndTask("1", domain)

		Expect(tasks).To(BeEmpty())
	})

	It("should invoke hooks in order", func() {
		domain.AcceptHook(hook)

		StartTask("1", "0", domain, "req_in", "read", 42)
		AddTaskStep("1", domain, "sent")
		EndTask("1", domain)

		Expect(poses).To(Equal([]*sim.HookPos{
			HookPosTaskStart, HookPosTaskStep, HookPosTaskEnd,
		}))
		Expect(tasks[0].Where).To(Equal("Comp"))
		Expect(tasks[0].ParentID).To(Equal("0"))
		Expect(tasks[0].Detail).To(Equal(42))
		Expect(tasks[1].Steps).To(Equal([]TaskStep{{What: "sent"}}))
	})

	It("should panic on incomplete tasks", func() {
		domain.AcceptHook(hook)

		Expect(func() {
			StartTask("", "", domain, "req_in", "read", nil)
		}).To(Panic())
		Expect(func() {
			StartTask("1", "", domain, "", "read", nil)
		}).To(Panic())
	})
})

var _ = Describe("AverageTimeTracer", func() {
	var (
		mockCtrl   *gomock.Controller
		timeTeller *MockTimeTeller
		tracer     *AverageTimeTracer
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		timeTeller = NewMockTimeTeller(mockCtrl)
		tracer = NewAverageTimeTracer(timeTeller, KindIs("req_in"))
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should average the filtered tasks", func() {
		gomock.InOrder(
			timeTeller.EXPECT().CurrentTime().Return(sim.VTime(0)),
			timeTeller.EXPECT().CurrentTime().Return(sim.VTime(10)),
			timeTeller.EXPECT().CurrentTime().Return(sim.VTime(20)),
			timeTeller.EXPECT().CurrentTime().Return(sim.VTime(30)),
			timeTeller.EXPECT().CurrentTime().Return(sim.VTime(40)),
		)

		tracer.StartTask(Task{ID: "1", Kind: "req_in"})
		tracer.StartTask(Task{ID: "2", Kind: "req_in"})
		tracer.StartTask(Task{ID: "3", Kind: "other"})
		tracer.EndTask(Task{ID: "1"})
		tracer.EndTask(Task{ID: "2"})

		Expect(tracer.TotalCount()).To(Equal(uint64(2)))
		Expect(tracer.AverageTime()).To(Equal(sim.VTime(30)))
	})
})

var _ = Describe("DBTracer", func() {
	var (
		mockCtrl   *gomock.Controller
		timeTeller *MockTimeTeller
		recorder   *fakeRecorder
		tracer     *DBTracer
		domain     *sim.ComponentBase
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		timeTeller = NewMockTimeTeller(mockCtrl)
		recorder = newFakeRecorder()

		var err error
		tracer, err = NewDBTracer(timeTeller, recorder)
		Expect(err).ToNot(HaveOccurred())

		domain = sim.NewComponentBase("CXLMem")
		CollectTrace(domain, tracer)
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should write finished tasks with their steps", func() {
		gomock.InOrder(
			timeTeller.EXPECT().CurrentTime().Return(sim.VTime(1000)),
			timeTeller.EXPECT().CurrentTime().Return(sim.VTime(15000)),
			timeTeller.EXPECT().CurrentTime().Return(sim.VTime(80000)),
		)

		StartTask("t1", "", domain, "req_in", "read", nil)
		AddTaskStep("t1", domain, "mem_send")
		EndTask("t1", domain)

		Expect(recorder.tables["trace"]).To(Equal([]any{TaskEntry{
			ID:        "t1",
			Kind:      "req_in",
			What:      "read",
			Location:  "CXLMem",
			StartTime: 1000,
			EndTime:   80000,
			Steps:     1,
		}}))
		Expect(recorder.tables["trace_steps"]).To(Equal([]any{StepEntry{
			TaskID: "t1",
			What:   "mem_send",
			Time:   15000,
		}}))
		Expect(tracer.InflightTasks()).To(Equal(0))
	})

	It("should skip tasks outside the time range", func() {
		tracer.SetTimeRange(100, 200)

		gomock.InOrder(
			timeTeller.EXPECT().CurrentTime().Return(sim.VTime(0)),
			timeTeller.EXPECT().CurrentTime().Return(sim.VTime(50)),
			timeTeller.EXPECT().CurrentTime().Return(sim.VTime(300)),
		)

		StartTask("early", "", domain, "req_in", "read", nil)
		EndTask("early", domain)
		StartTask("late", "", domain, "req_in", "read", nil)

		Expect(recorder.tables["trace"]).To(BeEmpty())
		Expect(tracer.InflightTasks()).To(Equal(0))
	})

	It("should ignore unknown tasks", func() {
		EndTask("unknown", domain)
		AddTaskStep("unknown", domain, "x")

		Expect(recorder.tables["trace"]).To(BeEmpty())
	})

	It("should flush on terminate", func() {
		timeTeller.EXPECT().CurrentTime().Return(sim.VTime(0))
		StartTask("t1", "", domain, "req_in", "read", nil)

		Expect(tracer.Terminate()).To(Succeed())
		Expect(recorder.flushed).To(Equal(1))
		Expect(tracer.InflightTasks()).To(Equal(0))
	})

	It("should fail when the tables cannot be created", func() {
		_, err := NewDBTracer(timeTeller, &fakeRecorder{
			tables: make(map[string][]any),
			failOn: "trace_steps",
		})

		Expect(err).To(HaveOccurred())
	})
})
