// Package main provides the entry point for the Snapcrop application.
package main

import (
	"log"
	"os"

	"snapcrop/internal/app"
	"snapcrop/internal/version"
	"snapcrop/ui/mainwindow"
	"snapcrop/ui/prefs"

	fyneapp "fyne.io/fyne/v2/app"
)

const (
	appID    = "io.snapcrop.desktop"
	appTitle = "Snapcrop"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Printf("Starting %s v%s", appTitle, version.String())

	fyneApp := fyneapp.NewWithID(appID)
	fyneApp.Settings().SetTheme(&app.Theme{})

	appPrefs := prefs.Load()
	settings := appPrefs.Settings()
	editor := app.NewEditor(settings)

	win := mainwindow.New(fyneApp, editor, appPrefs)
	win.SetCloseIntercept(func() {
		editor.Close()
		win.SavePreferences()
		win.Close()
	})

	// Handle command line arguments
	if len(os.Args) > 1 {
		win.LoadImage(os.Args[1])
	}
	win.RestoreTool()

	win.ShowAndRun()
}
