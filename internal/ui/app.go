package ui

import (
	"fmt"
	"log"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"LiveCanvas/internal/board"
	"LiveCanvas/internal/live"
	"LiveCanvas/internal/loop"
	"LiveCanvas/internal/presence"
)

type Options struct {
	Title   string
	Room    string
	Backend live.Backend
	// Loop must be running; every session and tracker call is posted to it.
	Loop      *loop.Loop
	ShareLink string
	Presence  presence.Options
	Logger    *log.Logger
}

// RunApp opens the board window and blocks until it is closed.
func RunApp(opts Options) {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.Presence.Logger == nil {
		opts.Presence.Logger = opts.Logger
	}
	l := opts.Loop

	myApp := app.NewWithID("io.livecanvas.board")
	myWindow := myApp.NewWindow(opts.Title)
	myWindow.Resize(fyne.NewSize(1280, 800))

	surface := NewCanvas()
	session := board.New(opts.Backend, surface, board.Options{Logger: opts.Logger})
	tracker := presence.NewTracker(opts.Backend, l.Clock(), opts.Presence)
	boardWidget := NewBoardWidget(l, surface, session, tracker)
	toolbar := NewToolbar(l, session)
	panel := NewAttributePanel(l, session)

	status := widget.NewLabel(statusText(opts.Room, 0))
	link := widget.NewLabel(opts.ShareLink)
	copyLink := widget.NewButton("Copy link", func() {
		myWindow.Clipboard().SetContent(opts.ShareLink)
	})
	if opts.ShareLink == "" {
		copyLink.Hide()
	}

	session.OnActiveElementChange = func(el board.ActiveElement) {
		fyne.Do(func() { toolbar.SetActive(el) })
	}
	session.OnAttributesChange = func(attrs board.ElementAttributes) {
		fyne.Do(func() { panel.Show(attrs) })
	}
	session.OnImageRequest = func() {
		fyne.Do(func() { showImageDialog(myWindow, l, session.InsertImage) })
	}
	boardWidget.OnTextEdit = func(current string, apply func(string)) {
		entry := widget.NewEntry()
		entry.SetText(current)
		dialog.ShowForm("Edit text", "Save", "Cancel",
			[]*widget.FormItem{widget.NewFormItem("Text", entry)},
			func(ok bool) {
				if ok {
					apply(entry.Text)
				}
			}, myWindow)
	}
	boardWidget.OnPeersChange = func(n int) { status.SetText(statusText(opts.Room, n)) }

	key := func(k board.Key) func() {
		return func() { l.Post(func() { session.HandleKey(k) }) }
	}
	fileMenu := fyne.NewMenu("File",
		fyne.NewMenuItem("Export PDF…", func() {
			showExportDialog(myWindow, l, opts.Backend, status.SetText)
		}),
	)
	editMenu := fyne.NewMenu("Edit",
		fyne.NewMenuItem("Undo", key(board.Key{Name: "z", Ctrl: true})),
		fyne.NewMenuItem("Redo", key(board.Key{Name: "z", Ctrl: true, Shift: true})),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Cut", key(board.Key{Name: "x", Ctrl: true})),
		fyne.NewMenuItem("Copy", key(board.Key{Name: "c", Ctrl: true})),
		fyne.NewMenuItem("Paste", key(board.Key{Name: "v", Ctrl: true})),
		fyne.NewMenuItem("Delete", key(board.Key{Name: "Delete"})),
	)
	myWindow.SetMainMenu(fyne.NewMainMenu(fileMenu, editMenu))

	scope := mountBoard(l, session, tracker)

	statusBar := container.NewHBox(status, widget.NewSeparator(), link, copyLink)
	content := container.NewBorder(toolbar.Content, statusBar, nil, container.NewVScroll(panel.Content), boardWidget)

	myWindow.SetContent(content)
	myWindow.Canvas().Focus(boardWidget)
	myWindow.ShowAndRun()
	scope.Close()
}

// mountBoard subscribes session and tracker on the loop. Closing the returned
// scope releases them from any goroutine, even after the loop has stopped.
func mountBoard(l *loop.Loop, session *board.Session, tracker *presence.Tracker) *loop.Scope {
	scope := &loop.Scope{}
	l.Post(func() {
		session.Mount(scope)
		tracker.Mount(l, scope)
	})
	return scope
}

func statusText(room string, peers int) string {
	switch peers {
	case 0:
		return fmt.Sprintf("Room %s: only you", room)
	case 1:
		return fmt.Sprintf("Room %s: 1 other", room)
	default:
		return fmt.Sprintf("Room %s: %d others", room, peers)
	}
}
