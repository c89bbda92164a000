// Package app implements the top-level PC/XT emulator application: wiring
// a machine.Machine to a graphics backend and the keyboard input queue,
// and running the real-time frame loop around them.
package app

import (
	"errors"
	"fmt"
	"log"
	"time"

	"pcxt/internal/execctl"
	"pcxt/internal/graphics"
	"pcxt/internal/machine"
	"pcxt/internal/romimage"
)

// Application owns a wired Machine, its graphics backend/window, and the
// pacing Emulator that drives them together.
type Application struct {
	m   *machine.Machine
	ctl *execctl.Control

	graphicsBackend graphics.Backend
	window          graphics.Window
	videoProcessor  *graphics.VideoProcessor

	config   *Config
	emulator *Emulator

	running     bool
	paused      bool
	initialized bool

	biosPath string

	startTime time.Time

	lastESCTime time.Time
}

// ApplicationError wraps a component/operation-tagged failure.
type ApplicationError struct {
	Component string
	Operation string
	Err       error
}

func (e *ApplicationError) Error() string {
	return fmt.Sprintf("application %s error during %s: %v", e.Component, e.Operation, e.Err)
}

func (e *ApplicationError) Unwrap() error {
	return e.Err
}

// NewApplication creates an application with default (non-headless) mode.
func NewApplication(configPath string) (*Application, error) {
	return NewApplicationWithMode(configPath, false)
}

// NewApplicationWithMode creates an application, optionally forcing
// headless graphics regardless of config.
func NewApplicationWithMode(configPath string, headless bool) (*Application, error) {
	app := &Application{
		config:    NewConfig(),
		startTime: time.Now(),
	}

	if configPath != "" {
		if err := app.config.LoadFromFile(configPath); err != nil {
			log.Printf("[APP] could not load config from %s, using defaults: %v", configPath, err)
		}
	}

	if err := app.initializeGraphics(headless); err != nil {
		return nil, &ApplicationError{Component: "graphics", Operation: "initialize", Err: err}
	}

	app.ctl = execctl.New()
	app.initialized = true
	return app, nil
}

// initializeGraphics creates and initializes the graphics backend
// according to config (or forces headless).
func (app *Application) initializeGraphics(headless bool) error {
	var backendType graphics.BackendType
	switch {
	case headless:
		backendType = graphics.BackendHeadless
	case app.config.Video.Backend == "headless":
		backendType = graphics.BackendHeadless
	case app.config.Video.Backend == "terminal":
		backendType = graphics.BackendTerminal
	default:
		backendType = graphics.BackendEbitengine
	}

	var err error
	app.graphicsBackend, err = graphics.CreateBackend(backendType)
	if err != nil {
		return fmt.Errorf("create backend: %w", err)
	}

	graphicsConfig := graphics.Config{
		WindowTitle:  "pcxt - IBM PC/XT emulator",
		WindowWidth:  app.config.Window.Width,
		WindowHeight: app.config.Window.Height,
		Fullscreen:   app.config.Window.Fullscreen,
		VSync:        app.config.Video.VSync,
		Filter:       app.config.Video.Filter,
		AspectRatio:  app.config.Video.AspectRatio,
		Headless:     headless,
		Debug:        app.config.Debug.EnableLogging,
	}

	if err := app.graphicsBackend.Initialize(graphicsConfig); err != nil {
		if backendType == graphics.BackendEbitengine {
			log.Printf("[APP] ebitengine backend failed (%v), falling back to headless", err)
			app.graphicsBackend, err = graphics.CreateBackend(graphics.BackendHeadless)
			if err != nil {
				return fmt.Errorf("create fallback headless backend: %w", err)
			}
			graphicsConfig.Headless = true
			if err := app.graphicsBackend.Initialize(graphicsConfig); err != nil {
				return fmt.Errorf("initialize fallback headless backend: %w", err)
			}
		} else {
			return fmt.Errorf("initialize backend: %w", err)
		}
	}

	app.window, err = app.graphicsBackend.CreateWindow(graphicsConfig.WindowTitle, graphicsConfig.WindowWidth, graphicsConfig.WindowHeight)
	if err != nil {
		return fmt.Errorf("create window: %w", err)
	}

	app.videoProcessor = graphics.NewVideoProcessor(app.config.Video.Brightness, app.config.Video.Contrast, app.config.Video.Saturation)
	return nil
}

// LoadBIOS loads a BIOS image and constructs the Machine around it. Must
// be called before Run.
func (app *Application) LoadBIOS(romPath string) error {
	if !app.initialized {
		return errors.New("application not initialized")
	}

	rom, err := romimage.LoadBIOSFromDir(app.config.Paths.ROMDir, romPath)
	if err != nil {
		return &ApplicationError{Component: "romimage", Operation: "load BIOS", Err: err}
	}

	machineType := machine.IBM_PC_5150
	if app.config.Emulation.MachineType == "5160" {
		machineType = machine.IBM_XT_5160
	}

	m, err := machine.New(machineType, machine.VideoCGA, rom, 0)
	if err != nil {
		return &ApplicationError{Component: "machine", Operation: "wire machine", Err: err}
	}

	app.m = m
	app.biosPath = romPath
	app.emulator = NewEmulator(m, app.ctl, app.config)

	if app.window != nil {
		app.window.SetTitle(fmt.Sprintf("pcxt - %s", romPath))
	}

	app.emulator.Start()
	app.ctl.DoRun()
	return nil
}

// SetBreakpoint arms a flat-address breakpoint on the running emulator.
func (app *Application) SetBreakpoint(flatAddr int) {
	if app.emulator != nil {
		app.emulator.SetBreakpoint(flatAddr)
	}
}

// Run starts the main application loop.
func (app *Application) Run() error {
	if !app.initialized {
		return errors.New("application not initialized")
	}
	if app.m == nil {
		return errors.New("no BIOS loaded")
	}

	app.running = true
	app.startTime = time.Now()

	if app.graphicsBackend.GetName() == "Ebitengine" && app.window != nil {
		if ebitengineWindow, ok := graphics.AsEbitengineWindow(app.window); ok {
			ebitengineWindow.SetEmulatorUpdateFunc(func() error {
				if err := app.processInput(); err != nil && app.config.Debug.EnableLogging {
					log.Printf("[APP] input processing error: %v", err)
				}
				if err := app.updateEmulator(); err != nil {
					return err
				}
				if err := app.render(); err != nil {
					return err
				}
				if app.window.ShouldClose() {
					app.Stop()
				}
				return nil
			})
			return ebitengineWindow.Run()
		}
	}

	for app.running {
		app.Step()
		if app.window != nil && app.window.ShouldClose() {
			app.Stop()
		}
		time.Sleep(16 * time.Millisecond)
	}

	return nil
}

// Step runs exactly one input/update/render cycle. Run calls this in a
// loop for non-Ebitengine backends; headless callers that want bounded,
// single-threaded iteration (no wall-clock pacing, no ShouldClose poll)
// can call it directly instead of Run.
func (app *Application) Step() {
	if err := app.processInput(); err != nil && app.config.Debug.EnableLogging {
		log.Printf("[APP] input processing error: %v", err)
	}
	if err := app.updateEmulator(); err != nil && app.config.Debug.EnableLogging {
		log.Printf("[APP] emulator update error: %v", err)
	}
	if err := app.render(); err != nil && app.config.Debug.EnableLogging {
		log.Printf("[APP] render error: %v", err)
	}
}

func (app *Application) updateEmulator() error {
	if app.paused || app.emulator == nil {
		return nil
	}
	return app.emulator.Update()
}

// processInput drains window events, feeding scancodes into the
// machine's keyboard queue and handling the application-level hotkeys.
func (app *Application) processInput() error {
	if app.window == nil {
		return nil
	}

	events := app.window.PollEvents()
	if len(events) == 0 {
		return nil
	}

	for _, event := range events {
		switch event.Type {
		case graphics.InputEventTypeQuit:
			app.Stop()
			return nil

		case graphics.InputEventTypeKey:
			if app.handleHotkey(event) {
				continue
			}
			if app.m == nil {
				continue
			}
			if event.Pressed {
				app.m.Keyboard.Press(event.Scancode)
			} else {
				app.m.Keyboard.Release(event.Scancode)
			}
		}
	}

	return nil
}

// pcxtScancodeEscape is the PC/XT set-1 make code for the Esc key.
const pcxtScancodeEscape = 0x01

// handleHotkey intercepts application-level key combinations (quit
// confirmation, pause) before a scancode reaches the emulated keyboard.
func (app *Application) handleHotkey(event graphics.InputEvent) bool {
	if !event.Pressed || event.Scancode != pcxtScancodeEscape {
		return false
	}

	now := time.Now()
	if !app.lastESCTime.IsZero() && now.Sub(app.lastESCTime) < 3*time.Second {
		log.Println("[APP] ESC double-tap confirmed, shutting down")
		app.Stop()
		return true
	}
	log.Println("[APP] ESC pressed - press ESC again within 3 seconds to quit")
	app.lastESCTime = now
	return true
}

// render pulls the current CGA frame and presents it.
func (app *Application) render() error {
	if app.window == nil || app.emulator == nil {
		return nil
	}

	pixels, width, height := app.emulator.FrameBuffer()
	if app.videoProcessor != nil {
		pixels = app.videoProcessor.ProcessFrame(pixels)
	}
	if err := app.window.RenderFrame(pixels, width, height); err != nil {
		return fmt.Errorf("render frame: %w", err)
	}
	app.window.SwapBuffers()
	return nil
}

// Stop stops the application's main loop.
func (app *Application) Stop() {
	app.running = false
}

// Pause pauses the emulator.
func (app *Application) Pause() {
	app.paused = true
}

// Resume resumes the emulator.
func (app *Application) Resume() {
	app.paused = false
}

// TogglePause toggles pause state.
func (app *Application) TogglePause() {
	app.paused = !app.paused
}

// Reset resets the machine.
func (app *Application) Reset() {
	if app.m != nil {
		app.m.Reset()
	}
}

// IsRunning reports whether the application's main loop is active.
func (app *Application) IsRunning() bool {
	return app.running
}

// IsPaused reports whether emulation is paused.
func (app *Application) IsPaused() bool {
	return app.paused
}

// GetFrameCount returns the total number of frames rendered.
func (app *Application) GetFrameCount() uint64 {
	if app.emulator == nil {
		return 0
	}
	return app.emulator.GetFrameCount()
}

// GetUptime returns how long the application has been running.
func (app *Application) GetUptime() time.Duration {
	return time.Since(app.startTime)
}

// GetEmulationSpeed returns the emulator's speed as a percentage of real time.
func (app *Application) GetEmulationSpeed() float64 {
	if app.emulator == nil {
		return 0
	}
	return app.emulator.GetEmulationSpeed()
}

// GetBIOSPath returns the path of the currently loaded BIOS image.
func (app *Application) GetBIOSPath() string {
	return app.biosPath
}

// GetConfig returns the application's configuration.
func (app *Application) GetConfig() *Config {
	return app.config
}

// GetMachine returns the underlying machine, or nil if no BIOS is loaded.
func (app *Application) GetMachine() *machine.Machine {
	return app.m
}

// GetControl returns the execution-control state machine.
func (app *Application) GetControl() *execctl.Control {
	return app.ctl
}

// Cleanup releases all application resources.
func (app *Application) Cleanup() error {
	var lastErr error

	if app.emulator != nil {
		if err := app.emulator.Cleanup(); err != nil {
			lastErr = err
			log.Printf("[APP] emulator cleanup error: %v", err)
		}
	}

	if app.window != nil {
		if err := app.window.Cleanup(); err != nil {
			lastErr = err
			log.Printf("[APP] window cleanup error: %v", err)
		}
	}

	if app.graphicsBackend != nil {
		if err := app.graphicsBackend.Cleanup(); err != nil {
			lastErr = err
			log.Printf("[APP] graphics backend cleanup error: %v", err)
		}
	}

	app.initialized = false
	return lastErr
}
