// Package mainwindow provides the main application window.
package mainwindow

import (
	"context"
	"errors"
	"fmt"
	goimage "image"
	"log"
	"os"
	"path/filepath"
	"time"

	"snapcrop/internal/app"
	"snapcrop/internal/image"
	"snapcrop/internal/processor"
	"snapcrop/internal/version"
	"snapcrop/ui/canvas"
	"snapcrop/ui/prefs"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/widget"
)

const appTitle = "Snapcrop"

// MainWindow is the primary application window.
type MainWindow struct {
	fyne.Window
	app    fyne.App
	editor *app.Editor
	prefs  *prefs.Prefs

	canvas    *canvas.SelectionCanvas
	toolGroup *widget.RadioGroup
	filterSel *widget.Select
	progress  *widget.ProgressBarInfinite
	statusBar *widget.Label

	// Whole-image actions, disabled while the editor is busy.
	actions []*widget.Button
}

// New creates a new main window.
func New(fyneApp fyne.App, editor *app.Editor, p *prefs.Prefs) *MainWindow {
	win := fyneApp.NewWindow(appTitle)

	mw := &MainWindow{
		Window: win,
		app:    fyneApp,
		editor: editor,
		prefs:  p,
	}

	mw.setupUI()
	mw.setupMenus()
	mw.setupEventHandlers()

	win.Resize(fyne.NewSize(1080, 800))
	return mw
}

// setupUI creates the main UI layout.
func (mw *MainWindow) setupUI() {
	mw.canvas = canvas.NewSelectionCanvas(mw.editor)
	mw.statusBar = widget.NewLabel("Open an image to start")
	mw.progress = widget.NewProgressBarInfinite()
	mw.progress.Hide()

	toolbar := mw.createToolbar()

	status := container.NewBorder(nil, nil, nil, mw.progress, mw.statusBar)
	content := container.NewBorder(toolbar, container.NewPadded(status), nil, nil, mw.canvas)
	mw.SetContent(content)
}

// createToolbar creates the tool picker and action buttons.
func (mw *MainWindow) createToolbar() fyne.CanvasObject {
	var names []string
	for _, t := range app.Tools() {
		if t != app.ToolNone {
			names = append(names, t.String())
		}
	}
	mw.toolGroup = widget.NewRadioGroup(names, func(name string) {
		tool, err := app.ParseTool(name)
		if err != nil {
			tool = app.ToolNone
		}
		mw.onSelectTool(tool)
	})
	mw.toolGroup.Horizontal = true
	mw.toolGroup.Required = true

	var filters []string
	for _, f := range processor.Filters() {
		if f != processor.FilterNone {
			filters = append(filters, f.String())
		}
	}
	mw.filterSel = widget.NewSelect(filters, nil)
	mw.filterSel.PlaceHolder = "Filter"

	applyBtn := widget.NewButton("Apply", mw.onApplyFilter)
	removeBtn := widget.NewButton("Remove background", mw.onRemoveBackground)
	saveBtn := widget.NewButton("Save", mw.onSave)
	copyBtn := widget.NewButton("Copy", mw.onCopy)
	mw.actions = []*widget.Button{applyBtn, removeBtn}

	return container.NewVBox(
		mw.toolGroup,
		container.NewHBox(
			mw.filterSel, applyBtn,
			widget.NewSeparator(),
			removeBtn,
			widget.NewSeparator(),
			saveBtn, copyBtn,
		),
	)
}

// setupMenus creates the application menus.
func (mw *MainWindow) setupMenus() {
	fileMenu := fyne.NewMenu("File",
		fyne.NewMenuItem("Open Image...", mw.onOpenImage),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Save Selection", mw.onSave),
		fyne.NewMenuItem("Save Selection As...", mw.onSaveAs),
		fyne.NewMenuItem("Copy Selection", mw.onCopy),
	)

	allowOutside := fyne.NewMenuItem("Allow Selection Outside Image", nil)
	allowOutside.Checked = mw.editor.Settings().AllowOutsideImage
	allowOutside.Action = func() {
		allowOutside.Checked = !allowOutside.Checked
		mw.onAllowOutside(allowOutside.Checked)
		mw.MainMenu().Refresh()
	}
	editMenu := fyne.NewMenu("Edit",
		allowOutside,
		fyne.NewMenuItem("Choose Save Folder...", mw.onChooseSaveDir),
	)

	helpMenu := fyne.NewMenu("Help",
		fyne.NewMenuItem("About", mw.onAbout),
	)

	mw.SetMainMenu(fyne.NewMainMenu(fileMenu, editMenu, helpMenu))
}

// setupEventHandlers registers for editor events.
func (mw *MainWindow) setupEventHandlers() {
	mw.editor.On(app.EventImageLoaded, func(data interface{}) {
		if img, ok := data.(goimage.Image); ok && img != nil {
			b := img.Bounds()
			mw.updateStatus(fmt.Sprintf("Image loaded (%dx%d)", b.Dx(), b.Dy()))
		}
	})

	mw.editor.On(app.EventToolChanged, func(data interface{}) {
		if t, ok := data.(app.Tool); ok {
			mw.prefs.SetString(prefs.KeyLastTool, t.String())
		}
	})

	mw.editor.On(app.EventImageProcessed, func(interface{}) {
		mw.updateStatus("Image updated")
	})

	mw.editor.On(app.EventExported, func(data interface{}) {
		if path, ok := data.(string); ok {
			mw.updateStatus("Saved " + path)
		}
	})

	busy := func(data interface{}) {
		if on, ok := data.(bool); ok {
			mw.setBusy(on)
		}
	}
	mw.editor.On(app.EventBusyChanged, busy)
	mw.editor.On(app.EventSnapProgress, busy)

	mw.editor.On(app.EventError, func(data interface{}) {
		if err, ok := data.(error); ok {
			mw.showError(err)
		}
	})
}

// RestoreTool selects the tool saved in preferences.
func (mw *MainWindow) RestoreTool() {
	t := mw.editor.Settings().LastTool
	if t == app.ToolNone {
		t = app.ToolRectangle
	}
	mw.toolGroup.SetSelected(t.String())
}

// updateStatus updates the status bar text.
func (mw *MainWindow) updateStatus(text string) {
	mw.statusBar.SetText(text)
}

func (mw *MainWindow) setBusy(on bool) {
	if on {
		mw.progress.Show()
		mw.progress.Start()
	} else {
		mw.progress.Stop()
		mw.progress.Hide()
	}
	for _, b := range mw.actions {
		if on {
			b.Disable()
		} else {
			b.Enable()
		}
	}
}

// showError maps editor failures to user-facing messages.
func (mw *MainWindow) showError(err error) {
	msg := err
	switch {
	case errors.Is(err, processor.ErrNoForeground):
		msg = errors.New("no object found, try another image")
	case errors.Is(err, app.ErrEmptySelection):
		msg = errors.New("nothing selected")
	}
	mw.updateStatus(msg.Error())
	dialog.ShowError(msg, mw.Window)
}

// getLastDir returns the last used directory as a ListableURI, or nil.
func (mw *MainWindow) getLastDir() fyne.ListableURI {
	path := mw.prefs.String(prefs.KeyLastDir, "")
	if path == "" {
		return nil
	}
	listable, err := storage.ListerForURI(storage.NewFileURI(path))
	if err != nil {
		return nil
	}
	return listable
}

// saveLastDir saves the directory of the given file path.
func (mw *MainWindow) saveLastDir(filePath string) {
	mw.prefs.SetString(prefs.KeyLastDir, filepath.Dir(filePath))
}

// saveDir returns where quick saves go.
func (mw *MainWindow) saveDir() string {
	if dir := mw.editor.Settings().SaveDir; dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, "Pictures")
}

func (mw *MainWindow) onSelectTool(tool app.Tool) {
	mw.editor.SelectTool(tool)
	mw.filterSel.Disable()
	if tool == app.ToolFilter {
		mw.filterSel.Enable()
	}
	mw.updateStatus("Tool: " + tool.String())
}

func (mw *MainWindow) onOpenImage() {
	fd := dialog.NewFileOpen(func(reader fyne.URIReadCloser, err error) {
		if err != nil || reader == nil {
			return
		}
		path := reader.URI().Path()
		reader.Close()

		if err := mw.editor.LoadImage(path); err != nil {
			return
		}
		mw.saveLastDir(path)
		mw.SetTitle(appTitle + " - " + filepath.Base(path))
	}, mw.Window)
	fd.SetFilter(storage.NewExtensionFileFilter([]string{".png", ".jpg", ".jpeg", ".tif", ".tiff"}))
	if dir := mw.getLastDir(); dir != nil {
		fd.SetLocation(dir)
	}
	fd.Show()
}

// LoadImage opens path, reporting failures in the status bar.
func (mw *MainWindow) LoadImage(path string) {
	if err := mw.editor.LoadImage(path); err != nil {
		log.Printf("mainwindow: failed to load %s: %v", path, err)
		return
	}
	mw.SetTitle(appTitle + " - " + filepath.Base(path))
}

func (mw *MainWindow) onApplyFilter() {
	f, err := processor.ParseFilter(mw.filterSel.Selected)
	if err != nil {
		mw.updateStatus("Choose a filter first")
		return
	}
	go func() {
		_ = mw.editor.ApplyFilter(context.Background(), f)
	}()
}

func (mw *MainWindow) onRemoveBackground() {
	go func() {
		_ = mw.editor.RemoveBackground(context.Background())
	}()
}

func (mw *MainWindow) onSave() {
	_, _ = mw.editor.SaveExport(mw.saveDir(), time.Now())
}

func (mw *MainWindow) onSaveAs() {
	img, err := mw.editor.Export()
	if err == nil && img == nil {
		err = app.ErrEmptySelection
	}
	if err != nil {
		mw.showError(err)
		return
	}

	fd := dialog.NewFileSave(func(writer fyne.URIWriteCloser, err error) {
		if err != nil || writer == nil {
			return
		}
		path := writer.URI().Path()
		writer.Close()

		if err := image.Save(path, img); err != nil {
			mw.showError(err)
			return
		}
		mw.saveLastDir(path)
		mw.updateStatus("Saved " + path)
	}, mw.Window)
	fd.SetFileName(image.ExportFileName(time.Now()))
	if dir := mw.getLastDir(); dir != nil {
		fd.SetLocation(dir)
	}
	fd.Show()
}

func (mw *MainWindow) onCopy() {
	img, err := mw.editor.Export()
	if err == nil && img == nil {
		err = app.ErrEmptySelection
	}
	if err == nil {
		err = copyImage(img)
	}
	if err != nil {
		mw.showError(err)
		return
	}
	mw.updateStatus("Copied to clipboard")
}

func (mw *MainWindow) onAllowOutside(allow bool) {
	s := mw.editor.Settings()
	s.AllowOutsideImage = allow
	mw.applySettings(s)
}

func (mw *MainWindow) onChooseSaveDir() {
	dialog.ShowFolderOpen(func(dir fyne.ListableURI, err error) {
		if err != nil || dir == nil {
			return
		}
		s := mw.editor.Settings()
		s.SaveDir = dir.Path()
		mw.applySettings(s)
		mw.updateStatus("Saving to " + dir.Path())
	}, mw.Window)
}

func (mw *MainWindow) applySettings(s app.Settings) {
	if err := mw.editor.UpdateSettings(s); err != nil {
		mw.showError(err)
		return
	}
	mw.prefs.SetSettings(s)
}

// SavePreferences writes preferences to disk.
func (mw *MainWindow) SavePreferences() {
	if err := mw.prefs.SaveIfChanged(); err != nil {
		log.Printf("mainwindow: failed to save preferences: %v", err)
	}
}

func (mw *MainWindow) onAbout() {
	dialog.ShowInformation("About "+appTitle,
		fmt.Sprintf("%s v%s\n\n"+
			"Select part of an image with a rectangle, circle\n"+
			"or (magnetic) lasso and export it.\n\n"+
			"Built: %s\n"+
			"Commit: %s",
			appTitle, version.Version, version.BuildTime, version.GitCommit),
		mw.Window)
}
