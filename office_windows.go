//go:build windows

package docconv

import (
	"errors"
	"fmt"

	ole "github.com/go-ole/go-ole"
	"github.com/go-ole/go-ole/oleutil"
)

// sFalse is returned by CoInitializeEx when the thread is already initialized.
const sFalse = 0x00000001

// withCOM initializes a single-threaded apartment around fn. The caller
// must hold the OS thread.
func withCOM(fn func() error) error {
	if err := ole.CoInitializeEx(0, ole.COINIT_APARTMENTTHREADED); err != nil {
		var oleErr *ole.OleError
		if !errors.As(err, &oleErr) || oleErr.Code() != sFalse {
			return fmt.Errorf("%w: initializing COM: %v", ErrToolUnavailable, err)
		}
	}
	defer ole.CoUninitialize()
	return fn()
}

// dispatchFirst starts the first automation server of progIDs that exists.
func dispatchFirst(progIDs []string) (*ole.IDispatch, string, error) {
	var errs []error
	for _, id := range progIDs {
		unknown, err := oleutil.CreateObject(id)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %v", id, err))
			continue
		}
		app, err := unknown.QueryInterface(ole.IID_IDispatch)
		unknown.Release()
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %v", id, err))
			continue
		}
		return app, id, nil
	}
	return nil, "", fmt.Errorf("%w: %w", ErrToolUnavailable, errors.Join(errs...))
}

// quitApplication quits and releases app. Errors are ignored; the server
// may already be gone.
func quitApplication(app *ole.IDispatch) {
	if v, err := oleutil.CallMethod(app, "Quit"); err == nil {
		_ = v.Clear()
	}
	app.Release()
}

func probeCOM(progIDs []string) error {
	app, _, err := dispatchFirst(progIDs)
	if err != nil {
		return err
	}
	quitApplication(app)
	return nil
}

// convertCOM opens input in the automation server and exports it as PDF.
// The application is quit on every path.
func convertCOM(progIDs []string, doc comDocument, input, output string) error {
	app, id, err := dispatchFirst(progIDs)
	if err != nil {
		return err
	}
	defer quitApplication(app)

	// Not every suite exposes both properties.
	if v, err := oleutil.PutProperty(app, "Visible", false); err == nil {
		_ = v.Clear()
	}
	if v, err := oleutil.PutProperty(app, "DisplayAlerts", false); err == nil {
		_ = v.Clear()
	}

	collection := "Documents"
	if doc == comWorkbookExport {
		collection = "Workbooks"
	}
	coll, err := oleutil.GetProperty(app, collection)
	if err != nil {
		return fmt.Errorf("%w: %s.%s: %v", ErrExternalOperation, id, collection, err)
	}
	defer func() { _ = coll.Clear() }()

	opened, err := oleutil.CallMethod(coll.ToIDispatch(), "Open", input)
	if err != nil {
		return fmt.Errorf("%w: %s opening %s: %v", ErrExternalOperation, id, input, err)
	}
	defer func() { _ = opened.Clear() }()
	file := opened.ToIDispatch()

	var exported *ole.VARIANT
	switch doc {
	case comWordSaveAs:
		exported, err = oleutil.CallMethod(file, "SaveAs", output, wdFormatPDF)
	case comWriterExport:
		exported, err = oleutil.CallMethod(file, "ExportAsFixedFormat", output, wdFormatPDF)
	default:
		exported, err = oleutil.CallMethod(file, "ExportAsFixedFormat", xlTypePDF, output)
	}
	closeDocument(file, doc)
	if err != nil {
		return fmt.Errorf("%w: %s exporting PDF: %v", ErrExternalOperation, id, err)
	}
	_ = exported.Clear()
	return nil
}

// closeDocument closes file without saving changes.
func closeDocument(file *ole.IDispatch, doc comDocument) {
	var v *ole.VARIANT
	var err error
	if doc == comWorkbookExport {
		v, err = oleutil.CallMethod(file, "Close", false)
	} else {
		v, err = oleutil.CallMethod(file, "Close")
	}
	if err == nil {
		_ = v.Clear()
	}
}
