package monitoring

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"reflect"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/cxlsim/sim"
	"github.com/sarchlab/cxlsim/stats"
)

type sampleStruct struct {
	field1 int
	field2 string
	field3 *sampleStruct
	field4 []sampleStruct
}

type sampleComponent struct {
	*sim.ComponentBase

	buffer sim.Buffer
	queue  sim.Buffer
	count  int
}

func (c *sampleComponent) Handle(_ sim.Event) error {
	return nil
}

func (c *sampleComponent) Buffers() []sim.Buffer {
	return []sim.Buffer{c.buffer, c.queue}
}

func newSampleComponent() *sampleComponent {
	c := &sampleComponent{
		ComponentBase: sim.NewComponentBase("Comp"),
		buffer:        sim.NewBuffer("Comp.Buf", 10),
		queue:         sim.NewBuffer("Comp.Queue", 2),
		count:         3,
	}

	return c
}

var _ = Describe("Monitor", func() {
	var (
		m *Monitor
	)

	BeforeEach(func() {
		m = &Monitor{}
	})

	It("should register components and internal buffers", func() {
		c := newSampleComponent()
		m.RegisterComponent(c)

		Expect(m.components).To(HaveLen(1))
		Expect(m.buffers).To(HaveLen(2))
	})

	It("should ignore low port numbers", func() {
		m.WithPortNumber(80)
		Expect(m.portNumber).To(Equal(0))

		m.WithPortNumber(8080)
		Expect(m.portNumber).To(Equal(8080))
	})

	It("should walk int fields", func() {
		s := &sampleStruct{
			field1: 1,
		}

		elem, err := m.walkFields(s, "field1")

		Expect(err).To(BeNil())
		Expect(elem.Kind()).To(Equal(reflect.Int))
		Expect(elem.Int()).To(Equal(int64(1)))
	})

	It("should walk string fields", func() {
		s := &sampleStruct{
			field2: "abc",
		}

		elem, err := m.walkFields(s, "field2")

		Expect(err).To(BeNil())
		Expect(elem.Kind()).To(Equal(reflect.String))
		Expect(elem.String()).To(Equal("abc"))
	})

	It("should walk recursively", func() {
		s := &sampleStruct{
			field3: &sampleStruct{
				field1: 1,
			},
		}

		elem, err := m.walkFields(s, "field3.field1")

		Expect(err).To(BeNil())
		Expect(elem.Int()).To(Equal(int64(1)))
	})

	It("should walk slice recursively", func() {
		s := &sampleStruct{
			field4: []sampleStruct{{
				field4: []sampleStruct{
					{field1: 1},
				},
			}, {}},
		}

		elem, err := m.walkFields(s, "field4.0.field4.0.field1")

		Expect(err).To(BeNil())
		Expect(elem.Int()).To(Equal(int64(1)))
	})

	It("should report a bad slice index", func() {
		s := &sampleStruct{field4: []sampleStruct{{}}}

		_, err := m.walkFields(s, "field4.x")

		Expect(err).To(Equal(fieldFormatError{}))
	})

	Context("when serving", func() {
		var (
			engine   *sim.SerialEngine
			registry *stats.Registry
			comp     *sampleComponent
			server   *httptest.Server
		)

		get := func(path string) (int, string) {
			rsp, err := http.Get(server.URL + path)
			Expect(err).ToNot(HaveOccurred())
			defer rsp.Body.Close()

			body, err := io.ReadAll(rsp.Body)
			Expect(err).ToNot(HaveOccurred())

			return rsp.StatusCode, string(body)
		}

		BeforeEach(func() {
			engine = sim.NewSerialEngine()
			registry = stats.NewRegistry()
			registry.NewCounter("Comp.Hits", "hits").Add(7)
			registry.NewDistribution("Comp.Lat", "latency").
				Init(0, 99, 10).Sample(20)

			comp = newSampleComponent()
			comp.queue.Push(1)
			comp.queue.Push(2)
			comp.buffer.Push(1)

			m.RegisterEngine(engine)
			m.RegisterStats(registry)
			m.RegisterComponent(comp)

			server = httptest.NewServer(m.router())
		})

		AfterEach(func() {
			server.Close()
		})

		It("should list components", func() {
			code, body := get("/api/list_components")

			Expect(code).To(Equal(http.StatusOK))
			Expect(body).To(Equal(`["Comp"]`))
		})

		It("should report the current time", func() {
			_, body := get("/api/now")

			Expect(body).To(Equal(`{"now":0.000000000000}`))
		})

		It("should serialize a component", func() {
			code, body := get("/api/component/Comp")

			Expect(code).To(Equal(http.StatusOK))
			Expect(body).ToNot(BeEmpty())
		})

		It("should return 404 for unknown components", func() {
			code, _ := get("/api/component/Other")

			Expect(code).To(Equal(http.StatusNotFound))
		})

		It("should list stats", func() {
			code, body := get("/api/stats")
			Expect(code).To(Equal(http.StatusOK))

			var rsp []statRsp
			Expect(json.Unmarshal([]byte(body), &rsp)).To(Succeed())
			Expect(rsp).To(HaveLen(2))
			Expect(rsp[0].Name).To(Equal("Comp.Hits"))
			Expect(*rsp[0].Value).To(Equal(uint64(7)))
			Expect(*rsp[1].Samples).To(Equal(uint64(1)))
			Expect(rsp[1].Mean).To(Equal(20.0))
		})

		It("should sort buffers by percent", func() {
			_, body := get("/api/hangdetector/buffers")

			Expect(body).To(Equal(
				`[{"buffer":"Comp.Queue","level":2,"cap":2},` +
					`{"buffer":"Comp.Buf","level":1,"cap":10}]`))
		})

		It("should sort buffers by level and apply the limit", func() {
			comp.buffer.Push(2)
			comp.buffer.Push(3)

			_, body := get("/api/hangdetector/buffers?sort=level&limit=1")

			Expect(body).To(Equal(`[{"buffer":"Comp.Buf","level":3,"cap":10}]`))
		})

		It("should reject unknown sort methods", func() {
			code, _ := get("/api/hangdetector/buffers?sort=name")

			Expect(code).To(Equal(http.StatusBadRequest))
		})

		It("should list progress bars", func() {
			bar := m.CreateProgressBar("Accesses", 10)
			bar.IncrementInProgress(6)
			bar.MoveInProgressToFinished(4)

			_, body := get("/api/progress")
			Expect(body).To(ContainSubstring(`"finished":4`))
			Expect(body).To(ContainSubstring(`"in_progress":2`))
			Expect(body).To(ContainSubstring(`"percent":40`))
			Expect(bar.Percent()).To(Equal(40.0))

			m.CompleteProgressBar(bar)
			_, body = get("/api/progress")
			Expect(body).To(Equal("[]"))
		})

		It("should pause and continue the engine", func() {
			code, _ := get("/api/pause")
			Expect(code).To(Equal(http.StatusOK))

			code, _ = get("/api/continue")
			Expect(code).To(Equal(http.StatusOK))
		})
	})
})
