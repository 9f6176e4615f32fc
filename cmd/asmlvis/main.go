// Command asmlvis is a desktop visualizer for the ASML interpreter: it
// steps the program at a fixed rate and draws the register file, the
// comparison flags, and the comparison-flag state as they evolve,
// grounded on the teacher's ebiten desktop frontend.
package main

import (
	"bytes"
	"fmt"
	"log"
	"os"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"asml/pkg/asml"
	"asml/pkg/layout"
	"asml/pkg/memory"
)

const (
	cellWidth  = 80
	cellHeight = 24
	marginX    = 8
	marginY    = 8
)

// Game drives one interpreter at a fixed step rate, pausable and
// single-steppable via the keyboard.
type Game struct {
	interp  *asml.Interpreter
	program *asml.Command
	out     *bytes.Buffer

	paused bool
}

func (g *Game) Update() error {
	if inpututil.IsKeyJustPressed(ebiten.KeySpace) {
		g.paused = !g.paused
	}
	if g.paused {
		if inpututil.IsKeyJustPressed(ebiten.KeyRight) {
			g.stepOnce()
		}
		return nil
	}

	for i := 0; i < 64; i++ {
		if g.interp.HadError || !g.stepOnce() {
			break
		}
	}
	return nil
}

// stepOnce runs a single command if the program hasn't finished, and
// reports whether it did.
func (g *Game) stepOnce() bool {
	if g.program == nil || g.interp.HadError {
		return false
	}
	rest := g.interp.StepOne(g.program)
	g.program = rest
	return rest != nil
}

func (g *Game) Draw(screen *ebiten.Image) {
	for i := 0; i < asml.NumRegisters; i++ {
		x, y := layout.GetGridCoords(i, layout.RegisterCols)
		px := marginX + x*cellWidth
		py := marginY + y*cellHeight
		msg := fmt.Sprintf("x%-2d=%d", i, g.interp.Registers[i])
		ebitenutil.DebugPrintAt(screen, msg, px, py)
	}

	flagsY := marginY + (asml.NumRegisters/layout.RegisterCols)*cellHeight + cellHeight
	flags := fmt.Sprintf("gt=%t eq=%t lt=%t  error=%t  paused=%t",
		g.interp.IsGreater, g.interp.IsEqual, g.interp.IsLess, g.interp.HadError, g.paused)
	ebitenutil.DebugPrintAt(screen, flags, marginX, flagsY)

	ebitenutil.DebugPrintAt(screen, g.out.String(), marginX, flagsY+cellHeight)
}

func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	return layout.RegisterCols * cellWidth, (asml.NumRegisters/layout.RegisterCols+6)*cellHeight + marginY*2
}

func main() {
	if len(os.Args) < 2 {
		log.Fatalf("usage: asmlvis <source-file>")
	}

	src, err := os.ReadFile(os.Args[1])
	if err != nil {
		log.Fatalf("failed to read source file: %v", err)
	}

	parser := asml.NewParser(src, 64)
	program := parser.Parse()
	if parser.HadError() {
		log.Fatalf("parse failed: %v", parser.Err())
	}

	mem := memory.New(65536)
	interp := asml.New(mem, parser.Labels)
	out := &bytes.Buffer{}
	interp.Output = out

	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetWindowSize(layout.RegisterCols*cellWidth, (asml.NumRegisters/layout.RegisterCols+6)*cellHeight)
	ebiten.SetWindowTitle("ASML Visualizer")

	game := &Game{interp: interp, program: program, out: out}
	if err := ebiten.RunGame(game); err != nil {
		log.Fatal(err)
	}
}
