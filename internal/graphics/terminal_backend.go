package graphics

import "fmt"

// TerminalBackend implements the Backend interface for terminal-based rendering
type TerminalBackend struct {
	initialized bool
	config      Config
}

// TerminalWindow implements the Window interface for terminal rendering
type TerminalWindow struct {
	title   string
	width   int
	height  int
	running bool
}

// NewTerminalBackend creates a new terminal graphics backend
func NewTerminalBackend() Backend {
	return &TerminalBackend{}
}

func (b *TerminalBackend) Initialize(config Config) error {
	if b.initialized {
		return fmt.Errorf("terminal backend already initialized")
	}
	b.config = config
	b.initialized = true
	return nil
}

func (b *TerminalBackend) CreateWindow(title string, width, height int) (Window, error) {
	if !b.initialized {
		return nil, fmt.Errorf("backend not initialized")
	}

	return &TerminalWindow{
		title:   title,
		width:   width,
		height:  height,
		running: true,
	}, nil
}

func (b *TerminalBackend) Cleanup() error {
	b.initialized = false
	return nil
}

func (b *TerminalBackend) IsHeadless() bool {
	return false
}

func (b *TerminalBackend) GetName() string {
	return "Terminal"
}

func (w *TerminalWindow) SetTitle(title string) {
	w.title = title
	fmt.Printf("\033]0;%s\007", title)
}

func (w *TerminalWindow) GetSize() (width, height int) {
	return w.width, w.height
}

func (w *TerminalWindow) ShouldClose() bool {
	return !w.running
}

func (w *TerminalWindow) SwapBuffers() {}

func (w *TerminalWindow) PollEvents() []InputEvent {
	return nil
}

// RenderFrame renders the frame as coarse ASCII art, sampling every few
// pixels so an 80x25 CGA text-mode frame still fits a normal terminal.
func (w *TerminalWindow) RenderFrame(pixels []byte, width, height int) error {
	fmt.Print("\033[2J\033[H")

	strideY := height / 50
	if strideY < 1 {
		strideY = 1
	}
	strideX := width / 100
	if strideX < 1 {
		strideX = 1
	}

	for y := 0; y < height; y += strideY {
		for x := 0; x < width; x += strideX {
			off := (y*width + x) * 4
			if pixels[off] == 0 && pixels[off+1] == 0 && pixels[off+2] == 0 {
				fmt.Print(" ")
			} else {
				fmt.Print("#")
			}
		}
		fmt.Println()
	}

	return nil
}

func (w *TerminalWindow) Cleanup() error {
	w.running = false
	return nil
}
