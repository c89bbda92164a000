// Package main implements the pcxt IBM PC/XT emulator executable.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"pcxt/internal/app"
	"pcxt/internal/version"
)

func main() {
	var (
		romFile    = flag.String("rom", "", "Path to BIOS ROM image")
		romDir     = flag.String("rom-dir", "", "Directory to search for -rom if it is not found as given")
		configFile = flag.String("config", "", "Path to configuration file")
		machineArg = flag.String("machine", "5150", "Machine type: 5150 or 5160")
		breakpoint = flag.Int("breakpoint", 0, "Flat-address breakpoint (0 disables)")
		nogui      = flag.Bool("nogui", false, "Run without GUI (headless mode)")
		debug      = flag.Bool("debug", false, "Enable debug mode")
		showHelp   = flag.Bool("help", false, "Show help message")
		showVer    = flag.Bool("version", false, "Show version information")
	)
	flag.Parse()

	if *showHelp {
		printUsage()
		os.Exit(0)
	}
	if *showVer {
		version.PrintBuildInfo()
		os.Exit(0)
	}

	setupGracefulShutdown()

	fmt.Println("pcxt - IBM PC/XT emulator starting...")

	configPath := *configFile
	if configPath == "" {
		configPath = app.GetDefaultConfigPath()
	}

	application, err := app.NewApplicationWithMode(configPath, *nogui)
	if err != nil {
		log.Fatalf("failed to create application: %v", err)
	}

	config := application.GetConfig()
	if *machineArg == "5150" || *machineArg == "5160" {
		config.Emulation.MachineType = *machineArg
	} else {
		log.Fatalf("unknown -machine value %q, must be 5150 or 5160", *machineArg)
	}
	if *romDir != "" {
		config.Paths.ROMDir = *romDir
	}

	if *nogui {
		config.Video.Backend = "headless"
		fmt.Println("headless mode requested")
	}

	defer func() {
		if err := application.Cleanup(); err != nil {
			log.Printf("application cleanup error: %v", err)
		}
	}()

	if *debug {
		config.UpdateDebug(true, true)
		fmt.Println("debug mode enabled")
	}

	if *romFile == "" {
		log.Fatal("a BIOS image is required: pass -rom")
	}

	fmt.Printf("loading BIOS: %s\n", *romFile)
	if err := application.LoadBIOS(*romFile); err != nil {
		log.Fatalf("failed to load BIOS: %v", err)
	}
	fmt.Println("BIOS loaded")

	if *breakpoint != 0 {
		application.SetBreakpoint(*breakpoint)
	}

	if *nogui {
		fmt.Println("running in headless mode...")
		runHeadlessMode(application)
	} else {
		fmt.Println("starting GUI mode...")
		if err := runGUIMode(application); err != nil {
			log.Fatalf("GUI mode failed: %v", err)
		}
	}

	fmt.Println("emulator shutting down...")
}

// runGUIMode runs the full GUI application loop.
func runGUIMode(application *app.Application) error {
	config := application.GetConfig()
	windowWidth, windowHeight := config.GetWindowResolution()
	fmt.Printf("  window: %dx%d (scale %dx)\n", windowWidth, windowHeight, config.Window.Scale)
	fmt.Printf("  machine: IBM PC/XT %s\n", config.Emulation.MachineType)
	fmt.Printf("  video: %s, %s, vsync %t\n", config.Video.Filter, config.Video.AspectRatio, config.Video.VSync)

	if err := application.Run(); err != nil {
		return fmt.Errorf("application run failed: %v", err)
	}

	fmt.Printf("session statistics:\n")
	fmt.Printf("  frames rendered: %d\n", application.GetFrameCount())
	fmt.Printf("  session time: %v\n", application.GetUptime())
	fmt.Printf("  emulation speed: %.1f%%\n", application.GetEmulationSpeed())

	return nil
}

// runHeadlessMode runs the emulator without GUI for a fixed number of
// frames, useful for smoke-testing a BIOS image end to end.
func runHeadlessMode(application *app.Application) {
	targetFrames := 120
	for i := 0; i < targetFrames; i++ {
		application.Step()
	}

	fmt.Printf("completed %d frames\n", application.GetFrameCount())
}

func setupGracefulShutdown() {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		fmt.Println("\ninterrupt received, shutting down gracefully...")
		os.Exit(0)
	}()
}

func printUsage() {
	fmt.Println("pcxt - IBM PC/XT emulator")
	fmt.Println()
	fmt.Println("DESCRIPTION:")
	fmt.Println("  A cycle-driven emulator for the IBM PC (5150) and PC/XT (5160),")
	fmt.Println("  built around an 8088 CPU core, 8259 PIC, 8253 PIT, 8237 DMA, 8255 PPI,")
	fmt.Println("  CGA video and floppy/fixed-disk controllers.")
	fmt.Println()
	fmt.Println("USAGE:")
	fmt.Println("  pcxt -rom <bios-image> [options]")
	fmt.Println()
	fmt.Println("OPTIONS:")
	flag.PrintDefaults()
	fmt.Println()
	fmt.Println("EXAMPLES:")
	fmt.Println("  pcxt -rom bios_5150.bin                 # Start with the 5150 BIOS")
	fmt.Println("  pcxt -rom bios_5160.bin -machine 5160   # Start as a PC/XT")
	fmt.Println("  pcxt -nogui -rom bios_5150.bin           # Run headless for smoke testing")
	fmt.Println("  pcxt -rom bios_5150.bin -breakpoint 0xFE05B  # Stop at a flat address")
	fmt.Println()
	fmt.Println("CONFIGURATION:")
	fmt.Println("  Config file: ./config/pcxt.json")
	fmt.Println("  ROMs:        ./roms/")
	fmt.Println()
	fmt.Println("For more information, visit the project documentation.")
}
