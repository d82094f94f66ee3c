// Package pagination provides sequential offset/limit paging for the
// statistics API.
//
// The API reports the size of a query in MRData.total and serves it in pages
// selected by the limit and offset query parameters. Pages are fetched one at
// a time with a fixed pause between them; no concurrent requests are issued.
//
// Example usage:
//
//	fetcher := pagination.NewOffsetFetcher[ergast.PitStop](pagination.DefaultConfig(), nil)
//	stops, err := fetcher.FetchAll(ctx, source)
//
// The fetcher stops when:
//   - the response carries no event (unknown season/round)
//   - a page carries no items, whatever the declared total says
//   - the next offset reaches the declared total (absent or zero total stops after the page)
//
// "No data" is an empty result, never an error. Errors of the underlying page
// source (retry exhaustion, cancellation) are returned as-is.
package pagination
