// Package docconv batch-converts office documents, spreadsheets, webpages,
// images and PDFs using whatever conversion tools the host provides.
//
// # Quick Start
//
// Create a service once, then run one operation per job:
//
//	svc := docconv.NewService(ctx)
//	ok := svc.DocumentsToPDF(ctx, docconv.NewController(), nil, docconv.Job{
//	    Inputs: []string{"report.docx", "notes.odt"},
//	    Output: "out/",
//	})
//
// Every operation processes its inputs in order, logs one outcome per item,
// and returns true when at least one item succeeded. A failed item never
// aborts the batch.
//
// # Backends
//
// NewService probes every known backend once. Each domain keeps an ordered
// list of candidates, and an item is tried against them in priority order:
//
//	documents   ms-word, wps-writer, libreoffice
//	sheets      ms-excel, wps-spreadsheets, libreoffice
//	web         edge, chrome, chromium-download, chromium-mirror
//	pdf         poppler
//
// Backends fall through to the next candidate on any failure. A stop or a
// cancelled context ends the item without trying further candidates.
//
// Use Service.Selector().Capabilities() to report what was found.
//
// # Pause, Resume and Stop
//
// A Controller is checked before each item, before each PDF page, and
// between webpage stabilization iterations. An in-flight external call is
// never interrupted.
//
// Runner executes one job at a time on its own goroutine and delivers
// progress and log lines as sequenced Events:
//
//	runner := docconv.NewRunner()
//	job, err := runner.Submit(ctx, "web", func(ctx context.Context, ctrl *docconv.Controller, r docconv.Reporter) bool {
//	    return svc.URLsToPDF(ctx, ctrl, r, docconv.Job{Inputs: urls, Output: "pdf/"})
//	})
//	for e := range runner.Events() {
//	    // render e, call runner.Pause/Resume/Stop from user input
//	    if e.Kind == docconv.EventDone {
//	        break
//	    }
//	}
//
// # Webpage Capture
//
// A webpage is loaded, scrolled until its height stops growing (bounded by
// CaptureSettings.MaxIterations), then printed to PDF. When printing fails
// or returns nothing, a full-page screenshot is embedded in a one-page PDF
// instead.
//
// # Browser Requirements
//
// Webpage capture needs Edge, Chrome or Chromium. When none is installed,
// go-rod downloads a managed Chromium on first use (~/.cache/rod/browser/).
//
// For containers and CI environments, set ROD_NO_SANDBOX=1 to disable the
// Chrome sandbox. Use ROD_BROWSER_BIN to specify a custom Chrome binary.
package docconv
