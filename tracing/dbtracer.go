package tracing

import (
	"fmt"
	"log"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/sarchlab/cxlsim/datarecording"
	"github.com/sarchlab/cxlsim/sim"
)

// TaskEntry is a row of the trace table. Times are in picoseconds.
type TaskEntry struct {
	ID        string
	ParentID  string
	Kind      string
	What      string
	Location  string
	StartTime uint64
	EndTime   uint64
	Steps     int
}

// StepEntry is a row of the trace_steps table.
type StepEntry struct {
	TaskID string
	What   string
	Time   uint64
}

// DBTracer is a tracer that stores finished tasks into a data recorder.
type DBTracer struct {
	mu         sync.Mutex
	timeTeller sim.TimeTeller
	backend    datarecording.DataRecorder

	startTime, endTime sim.VTime

	tracingTasks map[string]*Task
}

// NewDBTracer creates a new DBTracer and the tables it writes.
func NewDBTracer(
	timeTeller sim.TimeTeller,
	dataRecorder datarecording.DataRecorder,
) (*DBTracer, error) {
	if err := dataRecorder.CreateTable("trace", TaskEntry{}); err != nil {
		return nil, fmt.Errorf("creating trace table: %w", err)
	}

	if err := dataRecorder.CreateTable("trace_steps", StepEntry{}); err != nil {
		return nil, fmt.Errorf("creating trace step table: %w", err)
	}

	t := &DBTracer{
		timeTeller:   timeTeller,
		backend:      dataRecorder,
		tracingTasks: make(map[string]*Task),
	}

	return t, nil
}

// SetTimeRange limits the trace to the tasks that start before endTime and
// end after startTime. A zero endTime leaves the range open.
func (t *DBTracer) SetTimeRange(startTime, endTime sim.VTime) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.startTime = startTime
	t.endTime = endTime
}

// StartTask marks the start of a task.
func (t *DBTracer) StartTask(task Task) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if task.ID == "" || task.Kind == "" || task.What == "" ||
		task.Where == "" {
		log.Panicf("task %+v is incomplete", task)
	}

	task.StartTime = t.timeTeller.CurrentTime()
	if t.endTime > 0 && task.StartTime > t.endTime {
		return
	}

	t.tracingTasks[task.ID] = &task
}

// StepTask marks a step of a task.
func (t *DBTracer) StepTask(task Task) {
	t.mu.Lock()
	defer t.mu.Unlock()

	original, ok := t.tracingTasks[task.ID]
	if !ok {
		return
	}

	now := t.timeTeller.CurrentTime()
	for _, step := range task.Steps {
		step.Time = now
		original.Steps = append(original.Steps, step)
	}
}

// EndTask marks the end of a task and writes it.
func (t *DBTracer) EndTask(task Task) {
	t.mu.Lock()
	defer t.mu.Unlock()

	original, ok := t.tracingTasks[task.ID]
	if !ok {
		return
	}

	delete(t.tracingTasks, task.ID)

	original.EndTime = t.timeTeller.CurrentTime()
	if original.EndTime < t.startTime {
		return
	}

	t.write(original)
}

func (t *DBTracer) write(task *Task) {
	err := t.backend.InsertData("trace", TaskEntry{
		ID:        task.ID,
		ParentID:  task.ParentID,
		Kind:      task.Kind,
		What:      task.What,
		Location:  task.Where,
		StartTime: uint64(task.StartTime),
		EndTime:   uint64(task.EndTime),
		Steps:     len(task.Steps),
	})
	if err != nil {
		logrus.Errorf("tracing %s: %v", task.ID, err)
		return
	}

	for _, step := range task.Steps {
		err := t.backend.InsertData("trace_steps", StepEntry{
			TaskID: task.ID,
			What:   step.What,
			Time:   uint64(step.Time),
		})
		if err != nil {
			logrus.Errorf("tracing %s: %v", task.ID, err)
			return
		}
	}
}

// InflightTasks returns the number of tasks started but not ended.
func (t *DBTracer) InflightTasks() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return len(t.tracingTasks)
}

// Terminate flushes the finished tasks. Tasks still in flight are dropped.
func (t *DBTracer) Terminate() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.tracingTasks = make(map[string]*Task)

	return t.backend.Flush()
}
