// Command cropcli replays a pointer gesture over an image and writes the
// resulting selection, for scripting and reproducing editor behaviour
// without a display.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"snapcrop/internal/app"
	"snapcrop/internal/image"
	"snapcrop/internal/motion"
	"snapcrop/internal/processor"
	"snapcrop/internal/version"
)

func main() {
	imagePath := flag.String("image", "", "Path to input image (PNG, JPEG or TIFF)")
	toolName := flag.String("tool", "rectangle", "Tool: rectangle, circle, lasso, magnetic, filter or background")
	canvasSize := flag.String("canvas", "1080x1920", "Canvas size the gesture was made on, WxH")
	script := flag.String("events", "", `Gesture, e.g. "d:30,60 m:100,100 u:100,100"`)
	filterName := flag.String("filter", "", "Filter to apply with -tool filter")
	outPath := flag.String("out", "", "Output file; default selection-<millis>.png in the current directory")
	strict := flag.Bool("strict", false, "Keep selections inside the image")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println("cropcli", version.String())
		return
	}
	if *imagePath == "" {
		fmt.Fprintln(os.Stderr, "Usage: cropcli -image <path> [-tool rectangle] [-canvas 1080x1920] [-events \"d:x,y m:x,y u:x,y\"] [-out out.png]")
		os.Exit(2)
	}

	if err := run(*imagePath, *toolName, *canvasSize, *script, *filterName, *outPath, *strict); err != nil {
		fmt.Fprintf(os.Stderr, "cropcli: %v\n", err)
		os.Exit(1)
	}
}

func run(imagePath, toolName, canvasSize, script, filterName, outPath string, strict bool) error {
	tool, err := app.ParseTool(toolName)
	if err != nil {
		return err
	}
	canvas, err := parseSize(canvasSize)
	if err != nil {
		return err
	}
	events, err := parseEvents(script)
	if err != nil {
		return err
	}

	settings := app.DefaultSettings()
	settings.AllowOutsideImage = !strict
	editor := app.NewEditor(settings)
	defer editor.Close()

	if err := editor.LoadImage(imagePath); err != nil {
		return err
	}
	editor.SetCanvasSize(canvas)
	editor.SelectTool(tool)

	ctx := context.Background()
	switch tool {
	case app.ToolFilter:
		if filterName != "" {
			f, err := processor.ParseFilter(filterName)
			if err != nil {
				return err
			}
			if err := editor.ApplyFilter(ctx, f); err != nil {
				return err
			}
		}
	case app.ToolBackgroundRemover:
		if err := editor.RemoveBackground(ctx); err != nil {
			return err
		}
	}

	for _, ev := range events {
		editor.HandleEvent(ev)
	}
	if m, ok := editor.Handler().(*motion.MagneticLassoHandler); ok {
		m.Wait()
	}

	if outPath == "" {
		path, err := editor.SaveExport(".", time.Now())
		if err != nil {
			return err
		}
		fmt.Println(path)
		return nil
	}

	img, err := editor.Export()
	if err != nil {
		return err
	}
	if img == nil {
		return app.ErrEmptySelection
	}
	if err := image.Save(outPath, img); err != nil {
		return err
	}
	b := img.Bounds()
	fmt.Printf("%s (%dx%d, %s)\n", outPath, b.Dx(), b.Dy(), editor.Selection().Kind())
	return nil
}
