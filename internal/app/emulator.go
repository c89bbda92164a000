package app

import (
	"fmt"
	"sync"
	"time"

	"pcxt/internal/execctl"
	"pcxt/internal/machine"
)

// Emulator manages the real-time wall-clock pacing loop around a Machine.
// This is the one place wall-clock sync is allowed to live — the Machine's
// own Run method only ever advances by an explicit cycle budget.
type Emulator struct {
	machine *machine.Machine
	ctl     *execctl.Control
	config  *Config

	targetFrameTime time.Duration
	cyclesPerFrame  uint32

	frameTiming *CircularTimingBuffer

	frameCount      uint64
	cycleCount      uint64
	actualFrameTime time.Duration
	emulationTime   time.Duration

	isRunning     bool
	lastResetTime time.Time

	breakpoint int
}

// NewEmulator creates a new emulator instance driving m at 60Hz.
func NewEmulator(m *machine.Machine, ctl *execctl.Control, config *Config) *Emulator {
	e := &Emulator{
		machine:         m,
		ctl:             ctl,
		config:          config,
		targetFrameTime: time.Duration(16666667) * time.Nanosecond, // 60 FPS
		cyclesPerFrame:  config.Emulation.CyclesPerSecond / 60,
		frameTiming:     NewCircularTimingBuffer(180),
		lastResetTime:   time.Now(),
	}
	return e
}

// SetBreakpoint arms a flat-address breakpoint checked every CPU step.
func (e *Emulator) SetBreakpoint(flatAddr int) {
	e.breakpoint = flatAddr
}

// Start starts the emulator's frame loop.
func (e *Emulator) Start() {
	e.isRunning = true
}

// Stop stops the emulator's frame loop.
func (e *Emulator) Stop() {
	e.isRunning = false
}

// Update advances the machine by exactly one frame's worth of cycles.
func (e *Emulator) Update() error {
	if !e.isRunning {
		return nil
	}
	if e.machine == nil {
		return fmt.Errorf("machine not initialized")
	}

	frameStart := time.Now()

	e.machine.Run(e.cyclesPerFrame, e.ctl, e.breakpoint)
	if e.machine.IsError() {
		return fmt.Errorf("machine fault: %s", e.machine.ErrorString())
	}

	e.frameCount++
	e.cycleCount = e.machine.CPUCycles()
	e.emulationTime = time.Since(frameStart)
	e.actualFrameTime = e.emulationTime
	e.frameTiming.Add(e.actualFrameTime)

	return nil
}

// StepInstruction single-steps exactly one CPU instruction via execctl.
func (e *Emulator) StepInstruction() error {
	if e.machine == nil {
		return fmt.Errorf("machine not initialized")
	}
	e.ctl.SetState(execctl.Paused) // Run honors a step request only while Paused
	e.ctl.DoStep()
	e.machine.Run(e.cyclesPerFrame, e.ctl, e.breakpoint)
	if e.machine.IsError() {
		return fmt.Errorf("machine fault: %s", e.machine.ErrorString())
	}
	return nil
}

// FrameBuffer returns the current display contents decoded from the CGA
// adapter's memory window.
func (e *Emulator) FrameBuffer() (pixels []byte, width, height int) {
	return e.machine.CGA.FrameRGBA(e.machine.Bus)
}

// GetFrameCount returns the current frame count.
func (e *Emulator) GetFrameCount() uint64 {
	return e.frameCount
}

// GetCycleCount returns the current CPU cycle count.
func (e *Emulator) GetCycleCount() uint64 {
	return e.cycleCount
}

// GetEmulationTime returns the time spent in emulation for the last frame.
func (e *Emulator) GetEmulationTime() time.Duration {
	return e.emulationTime
}

// GetActualFrameTime returns the actual wall-clock time of the last frame.
func (e *Emulator) GetActualFrameTime() time.Duration {
	return e.actualFrameTime
}

// GetAverageFrameTime returns the rolling average frame time.
func (e *Emulator) GetAverageFrameTime() time.Duration {
	return e.frameTiming.GetAverage()
}

// GetTargetFrameTime returns the target frame time (60 FPS).
func (e *Emulator) GetTargetFrameTime() time.Duration {
	return e.targetFrameTime
}

// GetEmulationSpeed returns emulation speed as a percentage of real time.
func (e *Emulator) GetEmulationSpeed() float64 {
	if e.actualFrameTime == 0 {
		return 0.0
	}
	return float64(e.targetFrameTime) / float64(e.actualFrameTime) * 100.0
}

// IsRunning returns whether the emulator is running.
func (e *Emulator) IsRunning() bool {
	return e.isRunning
}

// GetUptime returns the emulator uptime since last reset.
func (e *Emulator) GetUptime() time.Duration {
	return time.Since(e.lastResetTime)
}

// Reset resets the emulator's own pacing/stat state and requests a machine
// reset, which the machine performs on its next Run.
func (e *Emulator) Reset() {
	e.frameCount = 0
	e.cycleCount = 0
	e.actualFrameTime = 0
	e.emulationTime = 0
	e.lastResetTime = time.Now()
	e.frameTiming.Reset()
	e.ctl.DoReset()
}

// Cleanup releases emulator resources.
func (e *Emulator) Cleanup() error {
	e.Stop()
	return nil
}

// CircularTimingBuffer efficiently stores recent frame-time measurements
// for jitter/average reporting.
type CircularTimingBuffer struct {
	mu       sync.RWMutex
	buffer   []time.Duration
	index    int
	size     int
	capacity int
}

// NewCircularTimingBuffer creates a new circular timing buffer.
func NewCircularTimingBuffer(capacity int) *CircularTimingBuffer {
	return &CircularTimingBuffer{
		buffer:   make([]time.Duration, capacity),
		capacity: capacity,
	}
}

// Add adds a timing measurement to the buffer.
func (ctb *CircularTimingBuffer) Add(duration time.Duration) {
	ctb.mu.Lock()
	defer ctb.mu.Unlock()

	ctb.buffer[ctb.index] = duration
	ctb.index = (ctb.index + 1) % ctb.capacity
	if ctb.size < ctb.capacity {
		ctb.size++
	}
}

// GetAverage calculates the average of stored durations.
func (ctb *CircularTimingBuffer) GetAverage() time.Duration {
	ctb.mu.RLock()
	defer ctb.mu.RUnlock()

	if ctb.size == 0 {
		return 0
	}
	var total time.Duration
	for i := 0; i < ctb.size; i++ {
		total += ctb.buffer[i]
	}
	return total / time.Duration(ctb.size)
}

// Reset clears the buffer.
func (ctb *CircularTimingBuffer) Reset() {
	ctb.mu.Lock()
	defer ctb.mu.Unlock()
	ctb.index = 0
	ctb.size = 0
}
