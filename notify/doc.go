// Package notify provides storehouse.Notifier sinks.
//
// Logger writes one line per lifecycle event. Ledger records committed files
// into a storehouse.LedgerRepo. Metrics counts commits. Async moves delivery
// off the request goroutine:
//
//	sink := notify.NewAsync(storehouse.MultiNotifier{
//	    notify.NewLogger(logger),
//	    notify.NewLedger(repo, logger),
//	}, 256, logger)
//	defer sink.Close()
package notify
