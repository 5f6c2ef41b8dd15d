// Package bottleneckanalysis tracks how full the queues of a simulation are
// over time.
package bottleneckanalysis

import (
	"fmt"
	"io"
	"log"
	"sort"

	"github.com/sarchlab/cxlsim/sim"
)

// BufferAnalyzer can use buffer levels to analyze the bottleneck of the system.
type BufferAnalyzer struct {
	timeTeller sim.TimeTeller
	lastTime   sim.VTime
	period     sim.VTime

	buffers map[string]*bufferInfo
}

type bufferInfo struct {
	buf                          sim.Buffer
	lastBufLevel                 int
	maxBufLevel                  int
	lastTime                     sim.VTime
	bufLevelToDuration           map[int]sim.VTime
	lastPeriodBufLevelToDuration map[int]sim.VTime
}

func averageLevel(levelToDuration map[int]sim.VTime) float64 {
	sum := 0.0
	durationSum := 0.0
	for level, duration := range levelToDuration {
		sum += float64(level) * float64(duration)
		durationSum += float64(duration)
	}

	if durationSum == 0.0 {
		return 0.0
	}

	return sum / durationSum
}

// NewBufferAnalyzer creates a new BufferAnalyzer.
func NewBufferAnalyzer(timeTeller sim.TimeTeller) *BufferAnalyzer {
	return &BufferAnalyzer{
		timeTeller: timeTeller,
		buffers:    make(map[string]*bufferInfo),
	}
}

// NewBufferAnalyzerWithPeriod creates a new BufferAnalyzer that also keeps
// the levels of the current period of the given length.
func NewBufferAnalyzerWithPeriod(
	timeTeller sim.TimeTeller,
	period sim.VTime,
) *BufferAnalyzer {
	if period == 0 {
		log.Panic("period must be positive")
	}

	ba := NewBufferAnalyzer(timeTeller)
	ba.period = period

	return ba
}

// Watch starts tracking an existing buffer.
func (b *BufferAnalyzer) Watch(buf sim.Buffer) {
	if _, ok := b.buffers[buf.Name()]; ok {
		log.Panicf("buffer %s is already watched", buf.Name())
	}

	b.buffers[buf.Name()] = &bufferInfo{
		buf:                          buf,
		lastBufLevel:                 buf.Size(),
		maxBufLevel:                  buf.Size(),
		lastTime:                     b.timeTeller.CurrentTime(),
		bufLevelToDuration:           make(map[int]sim.VTime),
		lastPeriodBufLevelToDuration: make(map[int]sim.VTime),
	}

	buf.AcceptHook(b)
}

// CreateBuffer creates a buffer to be analyzed
func (b *BufferAnalyzer) CreateBuffer(name string, capacity int) sim.Buffer {
	buf := sim.NewBuffer(name, capacity)
	b.Watch(buf)

	return buf
}

// Func is a function that records buffer level change.
func (b *BufferAnalyzer) Func(ctx sim.HookCtx) {
	buf := ctx.Domain.(sim.Buffer)

	bufInfo, ok := b.buffers[buf.Name()]
	if !ok {
		panic("buffer not watched by BufferAnalyzer")
	}

	b.advance(b.timeTeller.CurrentTime())

	bufInfo.lastBufLevel = buf.Size()
	if bufInfo.lastBufLevel > bufInfo.maxBufLevel {
		bufInfo.maxBufLevel = bufInfo.lastBufLevel
	}
}

// advance credits the time since the last update to the level each buffer
// held during it.
func (b *BufferAnalyzer) advance(now sim.VTime) {
	if b.period > 0 && now/b.period != b.lastTime/b.period {
		b.resetPeriod()
	}

	for _, bufInfo := range b.buffers {
		duration := now - bufInfo.lastTime
		bufInfo.bufLevelToDuration[bufInfo.lastBufLevel] += duration

		if b.period > 0 {
			periodStartTime := now / b.period * b.period
			if durationInPeriod := now - periodStartTime; duration > durationInPeriod {
				duration = durationInPeriod
			}

			bufInfo.lastPeriodBufLevelToDuration[bufInfo.lastBufLevel] += duration
		}

		bufInfo.lastTime = now
	}

	b.lastTime = now
}

func (b *BufferAnalyzer) resetPeriod() {
	for _, bufInfo := range b.buffers {
		bufInfo.lastPeriodBufLevelToDuration = make(map[int]sim.VTime)
	}
}

// A BufferLevel summarizes one buffer.
type BufferLevel struct {
	Name          string
	Capacity      int
	Current       int
	Max           int
	Average       float64
	PeriodAverage float64
}

// Levels returns the summary of every watched buffer up to the current
// time, sorted by name.
func (b *BufferAnalyzer) Levels() []BufferLevel {
	b.advance(b.timeTeller.CurrentTime())

	levels := make([]BufferLevel, 0, len(b.buffers))
	for name, bufInfo := range b.buffers {
		levels = append(levels, BufferLevel{
			Name:          name,
			Capacity:      bufInfo.buf.Capacity(),
			Current:       bufInfo.lastBufLevel,
			Max:           bufInfo.maxBufLevel,
			Average:       averageLevel(bufInfo.bufLevelToDuration),
			PeriodAverage: averageLevel(bufInfo.lastPeriodBufLevelToDuration),
		})
	}

	sort.Slice(levels, func(i, j int) bool {
		return levels[i].Name < levels[j].Name
	})

	return levels
}

// Report will dump the buffer level information.
func (b *BufferAnalyzer) Report(w io.Writer) {
	now := b.timeTeller.CurrentTime()

	for _, l := range b.Levels() {
		fmt.Fprintf(w, "%s, %d, %d, %d, %.4f, %.4f, %d\n",
			l.Name, now, l.Current, l.Max, l.Average, l.PeriodAverage,
			l.Capacity)
	}
}
