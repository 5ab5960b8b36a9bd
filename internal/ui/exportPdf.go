package ui

import (
	"bytes"
	"fmt"
	"io"
	"log"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"

	"LiveCanvas/internal/export"
	"LiveCanvas/internal/live"
	"LiveCanvas/internal/loop"
	"LiveCanvas/internal/state"
)

// showExportDialog asks for a file and writes the current board to it as PDF.
func showExportDialog(w fyne.Window, l *loop.Loop, backend live.Storage, status func(string)) {
	save := dialog.NewFileSave(func(writer fyne.URIWriteCloser, err error) {
		if err != nil {
			dialog.ShowError(err, w)
			return
		}
		if writer == nil {
			return
		}

		snapshots := make(chan state.Snapshot, 1)
		if !l.Post(func() {
			var snap state.Snapshot
			if s := backend.Snapshot(); s != nil {
				snap = *s
			}
			snapshots <- snap
		}) {
			writer.Close()
			return
		}

		go func() {
			snap := <-snapshots
			err := export.PDF(writer, snap)
			if cerr := writer.Close(); err == nil {
				err = cerr
			}
			fyne.Do(func() {
				if err != nil {
					log.Printf("[Export] Failed: %v", err)
					dialog.ShowError(err, w)
					return
				}
				status(fmt.Sprintf("Exported %d shapes to %s", len(snap.Records), writer.URI().Name()))
			})
		}()
	}, w)
	save.SetFileName("board.pdf")
	save.SetFilter(storage.NewExtensionFileFilter([]string{".pdf"}))
	save.Show()
}

// showImageDialog asks for an image file and inserts it through insert,
// which runs on the loop.
func showImageDialog(w fyne.Window, l *loop.Loop, insert func(io.Reader) error) {
	open := dialog.NewFileOpen(func(reader fyne.URIReadCloser, err error) {
		if err != nil {
			dialog.ShowError(err, w)
			return
		}
		if reader == nil {
			return
		}
		data, err := io.ReadAll(reader)
		reader.Close()
		if err != nil {
			dialog.ShowError(err, w)
			return
		}
		l.Post(func() {
			if err := insert(bytes.NewReader(data)); err != nil {
				log.Printf("[Board] Image insert failed: %v", err)
				fyne.Do(func() { dialog.ShowError(err, w) })
			}
		})
	}, w)
	open.SetFilter(storage.NewExtensionFileFilter([]string{".png", ".jpg", ".jpeg", ".gif", ".bmp", ".webp"}))
	open.Show()
}
