//go:build !headless
// +build !headless

package graphics

import (
	"fmt"
	"image"
	"image/color"
	"log"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
)

// EbitengineBackend implements the Backend interface using Ebitengine
type EbitengineBackend struct {
	initialized bool
	config      Config
	game        *EbitengineGame
}

// EbitengineWindow implements the Window interface for Ebitengine
type EbitengineWindow struct {
	backend            *EbitengineBackend
	title              string
	width              int
	height             int
	game               *EbitengineGame
	running            bool
	events             []InputEvent
	emulatorUpdateFunc func() error
}

// EbitengineGame implements ebiten.Game for the emulated machine's display
type EbitengineGame struct {
	window       *EbitengineWindow
	frameImage   *ebiten.Image
	frameWidth   int
	frameHeight  int
	windowWidth  int
	windowHeight int

	previousKeyStates map[ebiten.Key]bool
	drawCount         int

	imageBuffer *image.RGBA
}

// NewEbitengineBackend creates a new Ebitengine graphics backend
func NewEbitengineBackend() Backend {
	return &EbitengineBackend{}
}

// Initialize initializes the Ebitengine backend
func (b *EbitengineBackend) Initialize(config Config) error {
	if b.initialized {
		return fmt.Errorf("Ebitengine backend already initialized")
	}

	b.config = config
	b.initialized = true

	return nil
}

// CreateWindow creates an Ebitengine window
func (b *EbitengineBackend) CreateWindow(title string, width, height int) (Window, error) {
	if !b.initialized {
		return nil, fmt.Errorf("backend not initialized")
	}

	if b.config.Headless {
		return nil, fmt.Errorf("cannot create window in headless mode")
	}

	game := &EbitengineGame{
		windowWidth:       width,
		windowHeight:      height,
		previousKeyStates: make(map[ebiten.Key]bool),
	}

	window := &EbitengineWindow{
		backend: b,
		title:   title,
		width:   width,
		height:  height,
		game:    game,
		running: true,
	}

	game.window = window
	b.game = game

	ebiten.SetWindowTitle(title)
	ebiten.SetWindowSize(width, height)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)

	if b.config.VSync {
		ebiten.SetVsyncEnabled(true)
	} else {
		ebiten.SetVsyncEnabled(false)
	}

	if b.config.Fullscreen {
		ebiten.SetFullscreen(true)
	}

	if b.config.Filter == "linear" {
		ebiten.SetScreenFilterEnabled(true)
	} else {
		ebiten.SetScreenFilterEnabled(false)
	}

	return window, nil
}

// Cleanup releases all Ebitengine resources
func (b *EbitengineBackend) Cleanup() error {
	b.initialized = false
	return nil
}

// IsHeadless returns true if running in headless mode
func (b *EbitengineBackend) IsHeadless() bool {
	return b.config.Headless
}

// GetName returns the backend name
func (b *EbitengineBackend) GetName() string {
	return "Ebitengine"
}

// EbitengineWindow implementation

func (w *EbitengineWindow) SetTitle(title string) {
	w.title = title
	ebiten.SetWindowTitle(title)
}

func (w *EbitengineWindow) GetSize() (width, height int) {
	return w.width, w.height
}

func (w *EbitengineWindow) ShouldClose() bool {
	return !w.running
}

// SwapBuffers is handled automatically by Ebitengine
func (w *EbitengineWindow) SwapBuffers() {}

// PollEvents processes input events and returns them
func (w *EbitengineWindow) PollEvents() []InputEvent {
	events := w.events
	w.events = nil
	return events
}

// RenderFrame renders a CGA RGBA8 frame buffer to the window, reallocating
// the backing image whenever the adapter's video mode changes dimensions.
func (w *EbitengineWindow) RenderFrame(pixels []byte, width, height int) error {
	if w.game == nil {
		return fmt.Errorf("game not initialized")
	}
	if len(pixels) != width*height*4 {
		return fmt.Errorf("frame buffer size %d does not match %dx%d RGBA8", len(pixels), width, height)
	}

	g := w.game
	if g.frameImage == nil || g.frameWidth != width || g.frameHeight != height {
		g.frameWidth, g.frameHeight = width, height
		g.frameImage = ebiten.NewImage(width, height)
		g.imageBuffer = image.NewRGBA(image.Rect(0, 0, width, height))
	}

	copy(g.imageBuffer.Pix, pixels)
	g.frameImage.ReplacePixels(g.imageBuffer.Pix)

	return nil
}

func (w *EbitengineWindow) Cleanup() error {
	w.running = false
	return nil
}

// Run starts the Ebitengine game loop
func (w *EbitengineWindow) Run() error {
	if w.game == nil {
		return fmt.Errorf("game not initialized")
	}
	return ebiten.RunGame(w.game)
}

// SetEmulatorUpdateFunc sets the emulator update function
func (w *EbitengineWindow) SetEmulatorUpdateFunc(updateFunc func() error) {
	w.emulatorUpdateFunc = updateFunc
}

// EbitengineGame implementation

func (g *EbitengineGame) Update() error {
	if g.window == nil {
		return nil
	}

	g.processInput()

	if g.window.emulatorUpdateFunc != nil {
		if err := g.window.emulatorUpdateFunc(); err != nil {
			log.Printf("[Ebitengine] Emulator update error: %v", err)
		}
	}

	return nil
}

func (g *EbitengineGame) Draw(screen *ebiten.Image) {
	if g.frameImage == nil {
		screen.Fill(color.RGBA{R: 0, G: 0, B: 0, A: 255})
		return
	}

	screen.Fill(color.RGBA{R: 0, G: 0, B: 0, A: 255})

	op := &ebiten.DrawImageOptions{}

	scaleX := float64(g.windowWidth) / float64(g.frameWidth)
	scaleY := float64(g.windowHeight) / float64(g.frameHeight)
	scale := scaleX
	if scaleY < scaleX {
		scale = scaleY
	}

	offsetX := (float64(g.windowWidth) - float64(g.frameWidth)*scale) / 2
	offsetY := (float64(g.windowHeight) - float64(g.frameHeight)*scale) / 2

	op.GeoM.Scale(scale, scale)
	op.GeoM.Translate(offsetX, offsetY)

	screen.DrawImage(g.frameImage, op)

	g.drawCount++
	if g.drawCount%1800 == 0 {
		log.Printf("[Ebitengine] Drawing frame %d - %dx%d scaled %.2fx at offset (%.1f,%.1f)",
			g.drawCount, g.frameWidth, g.frameHeight, scale, offsetX, offsetY)
	}
}

func (g *EbitengineGame) Layout(outsideWidth, outsideHeight int) (screenWidth, screenHeight int) {
	g.windowWidth = outsideWidth
	g.windowHeight = outsideHeight
	return outsideWidth, outsideHeight
}

// scancodeTable maps Ebitengine key codes to PC/XT set-1 scancodes.
var scancodeTable = map[ebiten.Key]byte{
	ebiten.KeyEscape:    0x01,
	ebiten.Key1:         0x02,
	ebiten.Key2:         0x03,
	ebiten.Key3:         0x04,
	ebiten.Key4:         0x05,
	ebiten.Key5:         0x06,
	ebiten.Key6:         0x07,
	ebiten.Key7:         0x08,
	ebiten.Key8:         0x09,
	ebiten.Key9:         0x0A,
	ebiten.Key0:         0x0B,
	ebiten.KeyMinus:     0x0C,
	ebiten.KeyEqual:     0x0D,
	ebiten.KeyBackspace: 0x0E,
	ebiten.KeyTab:       0x0F,
	ebiten.KeyQ:         0x10,
	ebiten.KeyW:         0x11,
	ebiten.KeyE:         0x12,
	ebiten.KeyR:         0x13,
	ebiten.KeyT:         0x14,
	ebiten.KeyY:         0x15,
	ebiten.KeyU:         0x16,
	ebiten.KeyI:         0x17,
	ebiten.KeyO:         0x18,
	ebiten.KeyP:         0x19,
	ebiten.KeyEnter:     0x1C,
	ebiten.KeyControl:   0x1D,
	ebiten.KeyA:         0x1E,
	ebiten.KeyS:         0x1F,
	ebiten.KeyD:         0x20,
	ebiten.KeyF:         0x21,
	ebiten.KeyG:         0x22,
	ebiten.KeyH:         0x23,
	ebiten.KeyJ:         0x24,
	ebiten.KeyK:         0x25,
	ebiten.KeyL:         0x26,
	ebiten.KeyShift:     0x2A,
	ebiten.KeyZ:         0x2C,
	ebiten.KeyX:         0x2D,
	ebiten.KeyC:         0x2E,
	ebiten.KeyV:         0x2F,
	ebiten.KeyB:         0x30,
	ebiten.KeyN:         0x31,
	ebiten.KeyM:         0x32,
	ebiten.KeyComma:     0x33,
	ebiten.KeyPeriod:    0x34,
	ebiten.KeySlash:     0x35,
	ebiten.KeyAlt:       0x38,
	ebiten.KeySpace:     0x39,
	ebiten.KeyCapsLock:  0x3A,
	ebiten.KeyF1:        0x3B,
	ebiten.KeyF2:        0x3C,
	ebiten.KeyF3:        0x3D,
	ebiten.KeyF4:        0x3E,
	ebiten.KeyF5:        0x3F,
	ebiten.KeyF6:        0x40,
	ebiten.KeyF7:        0x41,
	ebiten.KeyF8:        0x42,
	ebiten.KeyF9:        0x43,
	ebiten.KeyF10:       0x44,
	ebiten.KeyNumLock:   0x45,
	ebiten.KeyScrollLock: 0x46,
	ebiten.KeyArrowUp:    0x48,
	ebiten.KeyArrowLeft:  0x4B,
	ebiten.KeyArrowRight: 0x4D,
	ebiten.KeyArrowDown:  0x50,
	ebiten.KeyF11:        0x57,
	ebiten.KeyF12:        0x58,
}

// processInput translates Ebitengine key transitions into scancode events.
func (g *EbitengineGame) processInput() {
	if g.window == nil {
		return
	}

	var events []InputEvent

	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		events = append(events, InputEvent{Type: InputEventTypeQuit, Pressed: true})
	}

	for ebitenKey, scancode := range scancodeTable {
		if inpututil.IsKeyJustPressed(ebitenKey) {
			events = append(events, InputEvent{Type: InputEventTypeKey, Scancode: scancode, Pressed: true})
			g.previousKeyStates[ebitenKey] = true
		} else if inpututil.IsKeyJustReleased(ebitenKey) {
			events = append(events, InputEvent{Type: InputEventTypeKey, Scancode: scancode | 0x80, Pressed: false})
			g.previousKeyStates[ebitenKey] = false
		}
	}

	g.window.events = append(g.window.events, events...)
}
